package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"

	"njord/api/grpcserver"
	"njord/api/pb"
	"njord/domain/market"
	"njord/infra/fillstore"
	"njord/infra/kafka"
	"njord/infra/wal"
	"njord/jobs/broadcaster"
	"njord/jobs/settler"
	"njord/service"
)

const (
	walDir       = "./data/wal"
	fillsDir     = "./data/fills"
	snapDir      = "./data/snapshots"
	grpcAddr     = ":50051"
	eventsTopic  = "njord.events"
	settledTopic = "njord.settlements"
)

var kafkaBrokers = []string{"localhost:9092"}

func main() {
	// ---------------- WAL ----------------

	journal, err := wal.Open(wal.Config{
		Dir:         walDir,
		SegmentSize: 2 * 1024 * 1024,
	})
	if err != nil {
		log.Fatalf("wal init failed: %v", err)
	}
	defer journal.Close()

	// ---------------- Fill store ----------------

	fills, err := fillstore.Open(fillsDir)
	if err != nil {
		log.Fatalf("fill store init failed: %v", err)
	}
	defer fills.Close()

	// ---------------- Service ----------------

	svc := service.New(service.Config{
		WAL:         journal,
		Fills:       fills,
		SnapshotDir: snapDir,
	})

	if err := svc.CreateMarket(market.Params{
		Symbol:      "SOL-USDC",
		BaseAsset:   "SOL",
		QuoteAsset:  "USDC",
		TickSize:    10,
		LotSize:     1,
		MakerFeeBps: 2,
		TakerFeeBps: 5,
	}, 1000, 0); err != nil {
		log.Fatalf("market init failed: %v", err)
	}

	// ---------------- WAL REPLAY ----------------

	if err := svc.Recover(walDir); err != nil {
		log.Fatalf("wal replay failed: %v", err)
	}

	// ---------------- Background Jobs ----------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bc, err := broadcaster.New(kafkaBrokers, eventsTopic, svc.Events(), fills)
	if err != nil {
		// the exchange runs fine without the stream; fills stay queued
		log.Printf("broadcaster unavailable: %v", err)
	} else {
		bc.Start(ctx)
		defer bc.Close()
	}

	confirmations := kafka.NewProducer(kafkaBrokers, settledTopic)
	defer confirmations.Close()

	st := settler.New(fills, settler.NopCustodian{}, confirmations)
	st.Start(ctx)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := svc.Checkpoint(); err != nil {
					log.Printf("[checkpoint] %v", err)
				}
			}
		}
	}()

	// ---------------- Matching crank ----------------

	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				crank(svc, "SOL-USDC")
			}
		}
	}()

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Fatalf("listen failed: %v", err)
	}

	grpcSrv := grpc.NewServer(grpc.ForceServerCodec(pb.Codec{}))
	pb.RegisterOrderServiceServer(
		grpcSrv,
		grpcserver.NewServer(svc),
	)

	fmt.Println("njord engine running on " + grpcAddr)

	if err := grpcSrv.Serve(lis); err != nil {
		log.Fatalf("gRPC server exited: %v", err)
	}
}

// crank drains crossed liquidity in bounded passes so one tick never
// monopolizes the market lock.
func crank(svc *service.OrderService, symbol string) {
	for {
		_, more, err := svc.Match(symbol, 64)
		if err != nil {
			log.Printf("[crank] %s: %v", symbol, err)
			return
		}
		if !more {
			return
		}
	}
}
