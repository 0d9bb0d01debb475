package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/lootsheet/internal/adapter/handler"
	"github.com/rl1809/lootsheet/internal/adapter/notify"
	"github.com/rl1809/lootsheet/internal/adapter/storage"
	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/core/service"
)

const (
	merchantID    = "stress-merchant"
	itemID        = "stress-torch"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	grpcAddr := flag.String("grpc", "", "submit buy requests to a running server instead of an in-process store")
	flag.Parse()

	if *grpcAddr != "" {
		runRemote(*grpcAddr)
		return
	}
	runLocal()
}

// runLocal races buyers against one merchant stack in an in-process SQLite
// store and checks that exactly the stock was sold.
func runLocal() {
	ctx := context.Background()

	store, err := storage.OpenSQLStore(ctx, "sqlite", ":memory:")
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	merchant := domain.Party{
		ID:       merchantID,
		Name:     "Stress Merchant",
		Currency: domain.Ledger{"gp": 0},
		Flags:    domain.PartyFlags{SheetType: domain.SheetTypeMerchant},
		Inventory: []domain.Item{{
			ID:         itemID,
			Name:       "Torch",
			Kind:       domain.ItemKindConsumable,
			Quantity:   initialStock,
			Price:      decimal.NewFromInt(1),
			Identified: true,
		}},
	}
	if err := store.SaveParty(ctx, merchant); err != nil {
		log.Fatalf("failed to seed merchant: %v", err)
	}
	for i := 0; i < totalRequests; i++ {
		buyer := domain.Party{ID: buyerID(i), Name: buyerID(i), Currency: domain.Ledger{"gp": 1}}
		if err := store.SaveParty(ctx, buyer); err != nil {
			log.Fatalf("failed to seed buyer: %v", err)
		}
	}

	svc := service.NewLootService(store, notify.NewNotifier(nil, nil, nil), nil)
	exec := service.ExecutionContext{CallingUser: "gm", Speaker: "gm", Settings: service.Settings{}}

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			_, err := svc.Purchase(ctx, exec, merchantID, buyerID(n), itemID, 1)
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()
	printResults(success, fail, elapsed)

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d purchases succeeded, %d failed\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	final, err := store.GetParty(ctx, merchantID)
	if err != nil {
		log.Fatalf("failed to read merchant: %v", err)
	}
	stock := 0
	if it, ok := final.Item(itemID); ok {
		stock = it.Quantity
	}
	fmt.Printf("Final Stock:      %d\n", stock)

	if stock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", stock)
	}
}

// runRemote fires buy requests at a server's gRPC ingress. Requests are
// applied asynchronously by the authority, so only dispatch is counted.
func runRemote(addr string) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to dial %s: %v", addr, err)
	}
	defer conn.Close()
	client := handler.NewMediatorClient(conn)

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Submit(ctx, domain.Request{
				Kind:              domain.RequestKindBuy,
				RequesterUserID:   fmt.Sprintf("player-%d", n),
				ActingActorID:     buyerID(n),
				TargetContainerID: merchantID,
				ItemID:            itemID,
				Quantity:          1,
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	printResults(successCount.Load(), failCount.Load(), time.Since(start))
}

func buyerID(n int) string {
	return fmt.Sprintf("buyer-%d", n)
}

func printResults(success, fail int32, elapsed time.Duration) {
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")
}
