package app_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"campus_coffee/internal/adapters/observability"
	redisad "campus_coffee/internal/adapters/redis"
	"campus_coffee/internal/app"
	"campus_coffee/internal/domain"
)

func TestFilter_PartitionsReviewsOfPOS(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()

	a := createReview(t, svc, posMensa, "a")
	b := createReview(t, svc, posMensa, "b")
	c := createReview(t, svc, posMensa, "c")
	createReview(t, svc, posCafe, "elsewhere")

	_, err := svc.Approve(ctx, a, approvers[0])
	require.NoError(t, err)
	_, err = svc.Approve(ctx, c, approvers[1])
	require.NoError(t, err)

	yes, err := svc.Filter(ctx, posMensa, true)
	require.NoError(t, err)
	no, err := svc.Filter(ctx, posMensa, false)
	require.NoError(t, err)

	require.Equal(t, []int64{a.ID, c.ID}, ids(yes))
	require.Equal(t, []int64{b.ID}, ids(no))
	for _, r := range yes {
		require.True(t, r.Approved)
	}
}

func TestFilter_UnknownPOS(t *testing.T) {
	svc, _ := newService(t, 1)
	_, err := svc.Filter(context.Background(), 404, true)
	requireKind(t, err, domain.KindReferenceNotFound, domain.EntityPOS)
}

func TestFilter_EmptyResultIsNonNil(t *testing.T) {
	svc, _ := newService(t, 1)
	out, err := svc.Filter(context.Background(), posCafe, true)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestFilter_CacheHitAndInvalidationOnApprove(t *testing.T) {
	svc, _ := newService(t, 1)
	cache := &fakeCache{}
	svc.WithCache(cache, 0)
	ctx := context.Background()

	r := createReview(t, svc, posMensa, "x")

	first, err := svc.Filter(ctx, posMensa, false)
	require.NoError(t, err)
	require.Len(t, first, 1)
	_, err = svc.Filter(ctx, posMensa, false)
	require.NoError(t, err)
	require.Equal(t, 1, cache.hits)

	_, err = svc.Approve(ctx, r, approvers[0])
	require.NoError(t, err)

	pending, err := svc.Filter(ctx, posMensa, false)
	require.NoError(t, err)
	require.Empty(t, pending, "approve must evict the cached unapproved list")
	approved, err := svc.Filter(ctx, posMensa, true)
	require.NoError(t, err)
	require.Len(t, approved, 1)
}

func TestFilter_ApproveDuringReadDoesNotLeaveStaleCache(t *testing.T) {
	st := newStore()
	paused := newPausingStore(st)
	svc, err := app.NewReviewService(paused, st, st, 1)
	require.NoError(t, err)
	svc.WithCache(&fakeCache{}, 0)
	ctx := context.Background()

	r := createReview(t, svc, posMensa, "x")

	done := make(chan []domain.Review)
	go func() {
		out, _ := svc.Filter(ctx, posMensa, false)
		done <- out
	}()
	<-paused.read

	// the read above has already seen the unapproved review
	_, err = svc.Approve(ctx, r, approvers[0])
	require.NoError(t, err)
	close(paused.release)
	require.Len(t, <-done, 1)

	pending, err := svc.Filter(ctx, posMensa, false)
	require.NoError(t, err)
	require.Empty(t, pending)
	approved, err := svc.Filter(ctx, posMensa, true)
	require.NoError(t, err)
	require.Len(t, approved, 1)
}

func TestFilter_SharedReadSurvivesCallerCancellation(t *testing.T) {
	st := newStore()
	paused := newPausingStore(st)
	svc, err := app.NewReviewService(paused, st, st, 1)
	require.NoError(t, err)
	createReview(t, svc, posMensa, "x")

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := svc.Filter(ctx, posMensa, false)
		errs <- err
	}()
	<-paused.read
	cancel()
	close(paused.release)
	require.NoError(t, <-errs)
}

func TestFilter_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	svc, _ := newService(t, 2)
	svc.WithCache(redisad.New(mr.Addr(), "", 0), 0)
	ctx := context.Background()

	r := createReview(t, svc, posMensa, "cached")
	out, err := svc.Filter(ctx, posMensa, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, mr.Exists("reviews:pos:1:approved:false"))

	_, err = svc.Upsert(ctx, domain.Review{ID: r.ID, PosID: posMensa, AuthorID: authorJane, Text: "edited"})
	require.NoError(t, err)
	require.False(t, mr.Exists("reviews:pos:1:approved:false"))

	out, err = svc.Filter(ctx, posMensa, false)
	require.NoError(t, err)
	require.Equal(t, "edited", out[0].Text)
}

func TestGet_UnknownReview(t *testing.T) {
	svc, _ := newService(t, 1)
	_, err := svc.Get(context.Background(), 77)
	requireKind(t, err, domain.KindReferenceNotFound, domain.EntityReview)
}

func TestWorkflow_RecordsSpansAndOutcomeMetrics(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	svc, _ := newService(t, 1)
	r := createReview(t, svc, posMensa, "x")

	before := testutil.ToFloat64(observability.ReviewOps.WithLabelValues("approve", string(domain.KindSelfApproval)))
	_, err := svc.Approve(context.Background(), r, authorJane)
	require.Error(t, err)
	after := testutil.ToFloat64(observability.ReviewOps.WithLabelValues("approve", string(domain.KindSelfApproval)))
	require.Equal(t, before+1, after)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, "ReviewService.Upsert", spans[0].Name())
	require.Equal(t, "ReviewService.Approve", spans[1].Name())
	require.Equal(t, codes.Error, spans[1].Status().Code)
}

func ids(rs []domain.Review) []int64 {
	out := make([]int64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
