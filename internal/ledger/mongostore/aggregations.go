package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/ledger"
)

// condSum builds a conditional $sum over the transaction kind.
func condSum(kind domain.TransactionKind) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.M{
		"if":   bson.M{"$eq": bson.A{"$type", kind}},
		"then": "$amount",
		"else": 0,
	}}}
}

func (s *Store) ExpenseTotalsByCategory(ctx context.Context, ownerID string, from, to *time.Time) ([]ledger.CategoryTotal, error) {
	match := bson.M{"userId": ownerID, "type": domain.KindExpense}
	if from != nil || to != nil {
		dateRange := bson.M{}
		if from != nil {
			dateRange["$gte"] = *from
		}
		if to != nil {
			dateRange["$lte"] = *to
		}
		match["date"] = dateRange
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$category.name",
			"totalAmount": bson.M{"$sum": "$amount"},
		}}},
		{{Key: "$sort", Value: bson.M{"totalAmount": -1}}},
		{{Key: "$project", Value: bson.M{
			"_id":      0,
			"category": "$_id",
			"amount":   "$totalAmount",
		}}},
	}

	var rows []ledger.CategoryTotal
	if err := s.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("mongostore: expense totals by category: %w", err)
	}
	return rows, nil
}

func (s *Store) MonthlyExpenseTotals(ctx context.Context, ownerID string, from, to time.Time) ([]ledger.MonthTotal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"userId": ownerID,
			"type":   domain.KindExpense,
			"date":   bson.M{"$gte": from, "$lte": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$date"},
				"month": bson.M{"$month": "$date"},
			},
			"totalAmount": bson.M{"$sum": "$amount"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.year", Value: 1}, {Key: "_id.month", Value: 1}}}},
		{{Key: "$project", Value: bson.M{
			"_id":    0,
			"year":   "$_id.year",
			"month":  "$_id.month",
			"amount": "$totalAmount",
		}}},
	}

	var rows []ledger.MonthTotal
	if err := s.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("mongostore: monthly expense totals: %w", err)
	}
	return rows, nil
}

func (s *Store) MonthlyFlows(ctx context.Context, ownerID string, from, to time.Time) ([]ledger.MonthFlow, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"userId": ownerID,
			"date":   bson.M{"$gte": from, "$lte": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$date"},
				"month": bson.M{"$month": "$date"},
			},
			"totalIncome":  condSum(domain.KindIncome),
			"totalExpense": condSum(domain.KindExpense),
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.year", Value: 1}, {Key: "_id.month", Value: 1}}}},
		{{Key: "$project", Value: bson.M{
			"_id":     0,
			"year":    "$_id.year",
			"month":   "$_id.month",
			"income":  "$totalIncome",
			"expense": "$totalExpense",
		}}},
	}

	var rows []ledger.MonthFlow
	if err := s.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("mongostore: monthly flows: %w", err)
	}
	return rows, nil
}

// Summary runs a single faceted pass: one branch for the lifetime balance,
// one for the trailing window.
func (s *Store) Summary(ctx context.Context, ownerID string, windowStart, now time.Time) (*ledger.OwnerSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": ownerID}}},
		{{Key: "$facet", Value: bson.M{
			"overallBalance": bson.A{
				bson.M{"$group": bson.M{
					"_id":          nil,
					"totalIncome":  condSum(domain.KindIncome),
					"totalExpense": condSum(domain.KindExpense),
				}},
				bson.M{"$project": bson.M{
					"_id":          0,
					"totalBalance": bson.M{"$subtract": bson.A{"$totalIncome", "$totalExpense"}},
				}},
			},
			"trailingWindow": bson.A{
				bson.M{"$match": bson.M{"date": bson.M{"$gte": windowStart, "$lte": now}}},
				bson.M{"$group": bson.M{
					"_id":               nil,
					"income":            condSum(domain.KindIncome),
					"expense":           condSum(domain.KindExpense),
					"totalTransactions": bson.M{"$sum": 1},
				}},
				bson.M{"$project": bson.M{
					"_id":               0,
					"netIncome":         bson.M{"$subtract": bson.A{"$income", "$expense"}},
					"totalExpense":      "$expense",
					"totalTransactions": "$totalTransactions",
				}},
			},
		}}},
	}

	var rows []struct {
		OverallBalance []struct {
			TotalBalance float64 `bson:"totalBalance"`
		} `bson:"overallBalance"`
		TrailingWindow []struct {
			NetIncome         float64 `bson:"netIncome"`
			TotalExpense      float64 `bson:"totalExpense"`
			TotalTransactions int64   `bson:"totalTransactions"`
		} `bson:"trailingWindow"`
	}
	if err := s.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("mongostore: owner summary: %w", err)
	}

	summary := &ledger.OwnerSummary{}
	if len(rows) == 0 {
		return summary, nil
	}
	if len(rows[0].OverallBalance) > 0 {
		summary.TotalBalance = rows[0].OverallBalance[0].TotalBalance
	}
	if len(rows[0].TrailingWindow) > 0 {
		w := rows[0].TrailingWindow[0]
		summary.Last30 = ledger.Last30Summary{
			NetIncome:         w.NetIncome,
			TotalExpense:      w.TotalExpense,
			TotalTransactions: w.TotalTransactions,
		}
	}
	return summary, nil
}

func (s *Store) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cur, err := s.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}
