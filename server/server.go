package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/finsight/creditrag/internal/models"
	"github.com/finsight/creditrag/pkg/llm"
	"github.com/finsight/creditrag/pkg/rag"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Request is a query from a websocket client.
type Request struct {
	Type   string `json:"type"` // "retrieve", "analyze" or "summary"
	Query  string `json:"query,omitempty"`
	Ticker string `json:"ticker,omitempty"`
	TopK   int    `json:"top_k,omitempty"`
}

// Response carries retrieval hits, a generated report, or an error.
type Response struct {
	Type    string               `json:"type"`
	Error   string               `json:"error,omitempty"`
	Chunks  []models.ScoredChunk `json:"chunks,omitempty"`
	Report  string               `json:"report,omitempty"`
	Summary *models.IndexSummary `json:"summary,omitempty"`
}

// WSServer exposes the retrieval engine and the analyst over a websocket.
type WSServer struct {
	engine  *rag.RAG
	analyst *llm.Analyst
}

// New creates a server. The analyst may be nil, in which case "analyze"
// requests are rejected.
func New(engine *rag.RAG, analyst *llm.Analyst) *WSServer {
	return &WSServer{engine: engine, analyst: analyst}
}

// ListenAndServe serves the websocket endpoint at /ws.
func (s *WSServer) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return http.ListenAndServe(addr, mux)
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Error reading message: %v", err)
			}
			break
		}

		resp := s.handle(r.Context(), req)
		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("Error writing message: %v", err)
			break
		}
	}
}

func (s *WSServer) handle(ctx context.Context, req Request) Response {
	switch req.Type {
	case "retrieve":
		result, err := s.engine.Retrieve(ctx, req.Query, req.Ticker, req.TopK)
		if err != nil {
			if errors.Is(err, rag.ErrEmptyQuery) {
				return Response{Type: req.Type, Error: "query text is required"}
			}
			return Response{Type: req.Type, Error: err.Error()}
		}
		return Response{Type: req.Type, Chunks: result.Chunks}

	case "analyze":
		if s.analyst == nil {
			return Response{Type: req.Type, Error: "analysis is not enabled on this server"}
		}
		report, err := s.analyze(ctx, req.Ticker)
		if err != nil {
			return Response{Type: req.Type, Error: err.Error()}
		}
		return Response{Type: req.Type, Report: report}

	case "summary":
		summary, err := s.engine.Summary(ctx)
		if err != nil {
			return Response{Type: req.Type, Error: err.Error()}
		}
		return Response{Type: req.Type, Summary: &summary}

	default:
		return Response{Type: req.Type, Error: "unknown request type"}
	}
}

func (s *WSServer) analyze(ctx context.Context, ticker string) (string, error) {
	risk, err := s.engine.GetRiskFactors(ctx, ticker, 0)
	if err != nil {
		return "", err
	}
	financial, err := s.engine.GetFinancialPerformance(ctx, ticker, 0)
	if err != nil {
		return "", err
	}
	debt, err := s.engine.GetDebtDiscussion(ctx, ticker, 0)
	if err != nil {
		return "", err
	}

	return s.analyst.Analyze(ctx, ticker, map[string]models.RetrievalResult{
		"RISK FACTORS":          risk,
		"FINANCIAL PERFORMANCE": financial,
		"DEBT AND LIQUIDITY":    debt,
	})
}
