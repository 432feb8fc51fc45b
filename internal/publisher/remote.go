package publisher

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"StaySentinel/internal/model"
	"StaySentinel/internal/supabase"
)

// BulkRow is one element of the bulk refresh payload.
type BulkRow struct {
	Name           string             `json:"nombre"`
	StarRating     int                `json:"estrellas"`
	AveragePrice   float64            `json:"precio_promedio"`
	ObservedNights int                `json:"noches_contadas"`
	DailyPrices    []model.DailyPrice `json:"precios_por_dia"`
	CreatedAt      string             `json:"created_at"`
	UserID         string             `json:"user_id"`
}

// DailyRow is one (property, date) record of the remote table, unique on (nombre, fecha).
type DailyRow struct {
	Name           string           `json:"nombre"`
	Date           string           `json:"fecha"`
	Price          int              `json:"precio"`
	Provenance     model.Provenance `json:"tipo"`
	StarRating     int              `json:"estrellas"`
	AveragePrice   float64          `json:"precio_promedio"`
	ObservedNights int              `json:"noches_contadas"`
	CreatedAt      string           `json:"created_at"`
	UserID         string           `json:"user_id"`
}

// RemoteStore is the shared store the batch is synced to.
type RemoteStore interface {
	BulkRefresh(ctx context.Context, rows []BulkRow) error
	Upsert(ctx context.Context, row DailyRow) error
	Clear(ctx context.Context, owner string, names []string) error
	Prune(ctx context.Context, owner string, names []string, before time.Time) error
}

// SupabaseStore implements RemoteStore over PostgREST.
type SupabaseStore struct {
	Client *supabase.Client
	RPC    string
	Table  string
}

func NewSupabaseStore(client *supabase.Client, rpc, table string) *SupabaseStore {
	return &SupabaseStore{Client: client, RPC: rpc, Table: table}
}

func (s *SupabaseStore) BulkRefresh(ctx context.Context, rows []BulkRow) error {
	_, err := s.Client.RPC(ctx, s.RPC, map[string]interface{}{"hotel_data": rows})
	return err
}

func (s *SupabaseStore) Upsert(ctx context.Context, row DailyRow) error {
	return s.Client.Upsert(ctx, s.Table, row, "nombre", "fecha")
}

func (s *SupabaseStore) Clear(ctx context.Context, owner string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	return s.Client.Delete(ctx, s.Table, scope(owner, names))
}

func (s *SupabaseStore) Prune(ctx context.Context, owner string, names []string, before time.Time) error {
	if len(names) == 0 {
		return nil
	}
	f := scope(owner, names)
	f.Set("created_at", "lt."+Stamp(before))
	return s.Client.Delete(ctx, s.Table, f)
}

// stampLayout matches the microsecond precision of a timestamptz column, so a row stamped
// with a run's start compares equal to the prune bound of that same run.
const stampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Stamp truncates t to what the remote store keeps and formats it in UTC.
func Stamp(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(stampLayout)
}

func scope(owner string, names []string) url.Values {
	f := url.Values{}
	f.Set("user_id", "eq."+owner)
	f.Set("nombre", supabase.InFilter(names))
	return f
}

func bulkRows(batch []*model.ReconciledEntity, owner string, createdAt time.Time) []BulkRow {
	ts := Stamp(createdAt)
	rows := make([]BulkRow, len(batch))
	for i, e := range batch {
		s := e.Summary()
		rows[i] = BulkRow{
			Name:           s.Name,
			StarRating:     int(s.StarRating),
			AveragePrice:   s.AveragePrice,
			ObservedNights: s.ObservedNights,
			DailyPrices:    s.DailyPrices,
			CreatedAt:      ts,
			UserID:         owner,
		}
	}
	return rows
}

func dailyRows(batch []*model.ReconciledEntity, owner string, createdAt time.Time) []DailyRow {
	ts := Stamp(createdAt)
	var rows []DailyRow
	for _, e := range batch {
		for _, p := range e.Series {
			rows = append(rows, DailyRow{
				Name:           e.Name,
				Date:           p.Date.Format(model.DateLayout),
				Price:          p.Price,
				Provenance:     p.Provenance,
				StarRating:     int(e.StarRating),
				AveragePrice:   e.AveragePrice,
				ObservedNights: e.ObservedNights,
				CreatedAt:      ts,
				UserID:         owner,
			})
		}
	}
	return rows
}

func (r DailyRow) String() string {
	return fmt.Sprintf("%s %s", r.Name, r.Date)
}
