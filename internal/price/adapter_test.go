package price

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fairyhunter13/pantry-inventory-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheapest(t *testing.T) {
	tests := []struct {
		name   string
		offers []model.Quote
		want   model.Quote
		ok     bool
	}{
		{name: "empty", offers: nil, want: model.Unavailable},
		{
			name: "minimum",
			offers: []model.Quote{
				{Link: "a", Price: 2.5, Currency: "£"},
				{Link: "b", Price: 0.69, Currency: "£"},
				{Link: "c", Price: 1.0, Currency: "£"},
			},
			want: model.Quote{Link: "b", Price: 0.69, Currency: "£"},
			ok:   true,
		},
		{
			name: "tie keeps first",
			offers: []model.Quote{
				{Link: "first", Price: 1, Currency: "£"},
				{Link: "second", Price: 1, Currency: "£"},
			},
			want: model.Quote{Link: "first", Price: 1, Currency: "£"},
			ok:   true,
		},
		{
			name:   "invalid prices ignored",
			offers: []model.Quote{{Link: "neg", Price: -1}, {Link: "ok", Price: 3, Currency: "$"}},
			want:   model.Quote{Link: "ok", Price: 3, Currency: "$"},
			ok:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Cheapest(tt.offers)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupBatchIsolatesFailures(t *testing.T) {
	src := SourceFunc(func(ctx context.Context, name string) ([]model.Quote, error) {
		switch name {
		case "honey":
			return nil, errors.New("connection refused")
		case "water":
			return []model.Quote{{Link: "w2", Price: 0.5, Currency: "£"}, {Link: "w1", Price: 0.4, Currency: "£"}}, nil
		default:
			return nil, nil
		}
	})
	got, err := NewAdapter(src, time.Second, 2).LookupBatch(context.Background(), []string{"honey", "water", "milk"})
	require.NoError(t, err)
	assert.Equal(t, map[string]model.Quote{
		"honey": model.Unavailable,
		"water": {Link: "w1", Price: 0.4, Currency: "£"},
		"milk":  model.Unavailable,
	}, got)
}

func TestLookupBatchTimesOutHungLookup(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	src := SourceFunc(func(ctx context.Context, name string) ([]model.Quote, error) {
		if name == "slow" {
			// ignores ctx on purpose
			<-block
			return nil, nil
		}
		return []model.Quote{{Link: name, Price: 1, Currency: "£"}}, nil
	})

	start := time.Now()
	got, err := NewAdapter(src, 50*time.Millisecond, 4).LookupBatch(context.Background(), []string{"slow", "fast"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, model.Unavailable, got["slow"])
	assert.Equal(t, model.Quote{Link: "fast", Price: 1, Currency: "£"}, got["fast"])
}

func TestLookupBatchRespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	src := SourceFunc(func(ctx context.Context, name string) ([]model.Quote, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return []model.Quote{{Link: name, Price: 1}}, nil
	})
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	got, err := NewAdapter(src, time.Second, 2).LookupBatch(context.Background(), names)
	require.NoError(t, err)
	assert.Len(t, got, len(names))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestLookupBatchCanceled(t *testing.T) {
	src := SourceFunc(func(ctx context.Context, name string) ([]model.Quote, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	got, err := NewAdapter(src, time.Minute, 2).LookupBatch(ctx, []string{"honey", "water", "milk"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, got)
}

func TestLookupBatchFreshEachCall(t *testing.T) {
	var calls atomic.Int32
	src := SourceFunc(func(ctx context.Context, name string) ([]model.Quote, error) {
		n := calls.Add(1)
		return []model.Quote{{Link: name, Price: float64(n)}}, nil
	})
	a := NewAdapter(src, time.Second, 1)
	first, err := a.LookupBatch(context.Background(), []string{"honey"})
	require.NoError(t, err)
	second, err := a.LookupBatch(context.Background(), []string{"honey"})
	require.NoError(t, err)
	assert.NotEqual(t, first["honey"].Price, second["honey"].Price)
	assert.EqualValues(t, 2, calls.Load())
}
