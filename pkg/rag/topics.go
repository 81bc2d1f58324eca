package rag

import (
	"context"

	"github.com/finsight/creditrag/internal/models"
)

// Canonical topic queries for 10-K analysis. The wording is part of the
// retrieval contract: changing it changes which chunks come back.
const (
	RiskFactorsQuery          = "risk factors business risks financial risks market risks operational risks"
	FinancialPerformanceQuery = "revenue earnings profit loss performance results operations financial condition"
	DebtDiscussionQuery       = "debt obligations borrowings liquidity capital structure financing"
)

const defaultTopicResults = 3

// GetRiskFactors retrieves risk-factor sections for a ticker.
func (r *RAG) GetRiskFactors(ctx context.Context, ticker string, topK int) (models.RetrievalResult, error) {
	if topK <= 0 {
		topK = defaultTopicResults
	}
	return r.Retrieve(ctx, RiskFactorsQuery, ticker, topK)
}

// GetFinancialPerformance retrieves financial performance discussions.
func (r *RAG) GetFinancialPerformance(ctx context.Context, ticker string, topK int) (models.RetrievalResult, error) {
	if topK <= 0 {
		topK = defaultTopicResults
	}
	return r.Retrieve(ctx, FinancialPerformanceQuery, ticker, topK)
}

// GetDebtDiscussion retrieves debt and capital structure sections.
func (r *RAG) GetDebtDiscussion(ctx context.Context, ticker string, topK int) (models.RetrievalResult, error) {
	if topK <= 0 {
		topK = defaultTopicResults
	}
	return r.Retrieve(ctx, DebtDiscussionQuery, ticker, topK)
}
