/*
realloc_test.go - Read-compute-write allocation run tests

PURPOSE:

	End-to-end over a real store: logging drop-ins, then purchasing a
	package, then running the reallocator must leave the persisted session
	links in the allocator's balanced state. Also exercises concurrent runs
	on the same pair, which must serialize rather than corrupt links.
*/
package billing_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefit/income-engine/billing"
	"github.com/pulsefit/income-engine/billing/store"
	"github.com/pulsefit/income-engine/engine"
)

func seedPair(t *testing.T, ctx context.Context, mem *store.Memory) {
	t.Helper()
	require.NoError(t, mem.SaveTrainer(ctx, billing.Trainer{ID: "t-1", Name: "Dana", Tier: billing.Tier1}))
	require.NoError(t, mem.SaveClient(ctx, tier1Client("c-1", "Alice")))
}

func TestReallocatorRun_AbsorbsDropInsIntoNewPackage(t *testing.T) {
	// GIVEN: Two persisted drop-ins, then a 10-pack purchase
	// WHEN: Running the reallocator for the pair
	// THEN: Both drop-ins end up linked to the package in the store
	ctx := context.Background()
	mem := store.NewMemory()
	seedPair(t, ctx, mem)

	feb := engine.NewDate(2026, time.February, 2)
	for i := 0; i < 2; i++ {
		require.NoError(t, mem.SaveSession(ctx, billing.Session{
			ID: billing.SessionID(fmt.Sprintf("s-%d", i+1)), ClientID: "c-1", TrainerID: "t-1",
			Date: feb.AddDate(0, 0, i), Mode: billing.ModePrivate,
		}))
	}
	_, err := mem.SavePackage(ctx, billing.Package{
		ID: "p-1", ClientID: "c-1", TrainerID: "t-1",
		SessionsPurchased: 10, StartDate: feb.AddDate(0, 0, 7), Mode: billing.ModePrivate,
	})
	require.NoError(t, err)

	result, err := billing.NewReallocator(mem).Run(ctx, "c-1", "t-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Absorbed)

	persisted, err := mem.SessionsFor(ctx, "c-1", "t-1")
	require.NoError(t, err)
	for _, s := range persisted {
		assert.Equal(t, billing.PackageID("p-1"), s.PackageID, "session %s", s.ID)
	}
}

func TestReallocatorRun_NoChangeWritesNothing(t *testing.T) {
	// A second run over the balanced state reports no change.
	ctx := context.Background()
	mem := store.NewMemory()
	seedPair(t, ctx, mem)

	feb := engine.NewDate(2026, time.February, 2)
	_, err := mem.SavePackage(ctx, billing.Package{
		ID: "p-1", ClientID: "c-1", TrainerID: "t-1",
		SessionsPurchased: 10, StartDate: feb, Mode: billing.ModePrivate,
	})
	require.NoError(t, err)
	require.NoError(t, mem.SaveSession(ctx, billing.Session{
		ID: "s-1", ClientID: "c-1", TrainerID: "t-1", Date: feb, Mode: billing.ModePrivate,
	}))

	realloc := billing.NewReallocator(mem)
	first, err := realloc.Run(ctx, "c-1", "t-1")
	require.NoError(t, err)
	assert.True(t, first.Changed())

	second, err := realloc.Run(ctx, "c-1", "t-1")
	require.NoError(t, err)
	assert.False(t, second.Changed())
}

func TestReallocatorRun_ConcurrentRunsOnSamePairStayConsistent(t *testing.T) {
	// Hammer one pair from several goroutines; the per-pair lock must
	// keep the final link state identical to a single sequential run.
	ctx := context.Background()
	mem := store.NewMemory()
	seedPair(t, ctx, mem)

	feb := engine.NewDate(2026, time.February, 2)
	_, err := mem.SavePackage(ctx, billing.Package{
		ID: "p-1", ClientID: "c-1", TrainerID: "t-1",
		SessionsPurchased: 5, StartDate: feb, Mode: billing.ModePrivate,
	})
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		require.NoError(t, mem.SaveSession(ctx, billing.Session{
			ID: billing.SessionID(fmt.Sprintf("s-%d", i+1)), ClientID: "c-1", TrainerID: "t-1",
			Date: feb.AddDate(0, 0, i), Mode: billing.ModePrivate,
		}))
	}

	realloc := billing.NewReallocator(mem)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := realloc.Run(ctx, "c-1", "t-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	persisted, err := mem.SessionsFor(ctx, "c-1", "t-1")
	require.NoError(t, err)
	linked := 0
	for _, s := range persisted {
		if s.Linked() {
			linked++
		}
	}
	assert.Equal(t, 5, linked, "exactly the package capacity gets linked")
}
