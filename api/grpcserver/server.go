// Package grpcserver adapts OrderService to gRPC.
package grpcserver

import (
	"context"
	"errors"
	"log"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"njord/api/pb"
	"njord/domain/book"
	"njord/domain/ledger"
	"njord/domain/market"
	"njord/engine"
	"njord/service"
)

type Server struct {
	svc *service.OrderService
}

func NewServer(svc *service.OrderService) *Server {
	return &Server{svc: svc}
}

// -------------------- Commands --------------------

func (s *Server) PlaceOrder(
	ctx context.Context,
	req *pb.PlaceOrderRequest,
) (*pb.PlaceOrderResponse, error) {
	id, fills, err := s.svc.PlaceOrder(req.Market, engine.OrderParams{
		Trader: req.Trader,
		Side:   book.Side(req.Side),
		Price:  req.Price,
		Size:   req.Size,
		TIF:    book.TimeInForce(req.Tif),
	})
	if err != nil {
		return nil, toStatus(err)
	}

	log.Printf(
		"[gRPC] PlaceOrder market=%s trader=%d side=%d price=%d size=%d id=%d fills=%d",
		req.Market, req.Trader, req.Side, req.Price, req.Size, id, len(fills),
	)

	return &pb.PlaceOrderResponse{
		OrderId: id,
		Fills:   toFills(fills),
	}, nil
}

func (s *Server) CancelOrder(
	ctx context.Context,
	req *pb.CancelOrderRequest,
) (*pb.CancelOrderResponse, error) {
	if err := s.svc.CancelOrder(req.Market, req.Trader, req.OrderId); err != nil {
		return nil, toStatus(err)
	}
	log.Printf("[gRPC] CancelOrder market=%s trader=%d id=%d", req.Market, req.Trader, req.OrderId)
	return &pb.CancelOrderResponse{}, nil
}

func (s *Server) Match(
	ctx context.Context,
	req *pb.MatchRequest,
) (*pb.MatchResponse, error) {
	fills, more, err := s.svc.Match(req.Market, req.MaxIterations)
	if err != nil {
		return nil, toStatus(err)
	}
	log.Printf("[gRPC] Match market=%s budget=%d fills=%d more=%v",
		req.Market, req.MaxIterations, len(fills), more)
	return &pb.MatchResponse{
		Fills: toFills(fills),
		More:  more,
	}, nil
}

func (s *Server) Deposit(
	ctx context.Context,
	req *pb.DepositRequest,
) (*pb.DepositResponse, error) {
	if err := s.svc.Deposit(req.Market, req.Trader, ledger.Asset(req.Asset), req.Amount); err != nil {
		return nil, toStatus(err)
	}
	return &pb.DepositResponse{}, nil
}

func (s *Server) Withdraw(
	ctx context.Context,
	req *pb.WithdrawRequest,
) (*pb.WithdrawResponse, error) {
	if err := s.svc.Withdraw(req.Market, req.Trader, ledger.Asset(req.Asset), req.Amount); err != nil {
		return nil, toStatus(err)
	}
	return &pb.WithdrawResponse{}, nil
}

// -------------------- Queries --------------------

func (s *Server) Balance(
	ctx context.Context,
	req *pb.BalanceRequest,
) (*pb.BalanceResponse, error) {
	acct, err := s.svc.Balance(req.Market, req.Trader)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.BalanceResponse{
		BaseAvailable:  acct.BaseAvailable,
		BaseLocked:     acct.BaseLocked,
		QuoteAvailable: acct.QuoteAvailable,
		QuoteLocked:    acct.QuoteLocked,
	}, nil
}

func (s *Server) Depth(
	ctx context.Context,
	req *pb.DepthRequest,
) (*pb.DepthResponse, error) {
	snap, err := s.svc.Depth(req.Market, int(req.MaxLevels))
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.DepthResponse{
		BestBid:     snap.BestBid,
		BestAsk:     snap.BestAsk,
		TotalVolume: snap.TotalVolume,
		Orders:      uint32(snap.Orders),
		Bids:        toLevels(snap.Bids),
		Asks:        toLevels(snap.Asks),
	}, nil
}

// -------------------- Converters --------------------

func toFills(fills []engine.Fill) []*pb.Fill {
	out := make([]*pb.Fill, 0, len(fills))
	for _, f := range fills {
		out = append(out, &pb.Fill{
			Id:          f.ID,
			Market:      f.Market,
			BidOrderId:  f.BidOrderID,
			AskOrderId:  f.AskOrderID,
			BidTrader:   f.BidTrader,
			AskTrader:   f.AskTrader,
			Taker:       uint32(f.Taker),
			Price:       f.Price,
			Size:        f.Size,
			QuoteAmount: f.QuoteAmount,
			MakerFee:    f.MakerFee,
			TakerFee:    f.TakerFee,
			Time:        f.Time,
		})
	}
	return out
}

func toLevels(levels []engine.DepthLevel) []*pb.DepthLevel {
	out := make([]*pb.DepthLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, &pb.DepthLevel{
			Price:  l.Price,
			Qty:    l.Qty,
			Orders: uint32(l.Orders),
		})
	}
	return out
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrMarketNotFound),
		errors.Is(err, book.ErrOrderNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, engine.ErrNotOwner):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, engine.ErrInvalidSide),
		errors.Is(err, engine.ErrInvalidTimeInForce),
		errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrAmountOverflow),
		errors.Is(err, market.ErrInvalidTick),
		errors.Is(err, market.ErrInvalidLot):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, engine.ErrMarketPaused),
		errors.Is(err, engine.ErrPostOnlyWouldCross),
		errors.Is(err, engine.ErrInsufficientLiquidity),
		errors.Is(err, engine.ErrSelfTradeBlocked),
		errors.Is(err, ledger.ErrInsufficientBalance):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, book.ErrPoolExhausted):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
