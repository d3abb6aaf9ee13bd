package lending_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patronflow/lending-eligibility-go/lending"
	"github.com/patronflow/lending-eligibility-go/lending/memoryengine"
	"github.com/patronflow/lending-eligibility-go/testutil/testdoubles"
)

func givenObservedEngine(
	t *testing.T,
	logger *testdoubles.ContextualLoggerSpy,
	metrics *testdoubles.MetricsCollectorSpy,
) *lending.Engine {
	t.Helper()

	store := givenStoreWithCatalog(t)

	engine, err := lending.NewEngine(givenFixtureHierarchy(t), store, store, givenTestConfig(t),
		lending.WithContextualLogger(logger),
		lending.WithMetrics(metrics),
	)
	require.NoError(t, err)

	return engine
}

func Test_Evaluate_LogsAndCountsAllowedDecision(t *testing.T) {
	// arrange
	logger := testdoubles.NewContextualLoggerSpy(true)
	metrics := testdoubles.NewMetricsCollectorSpy(true)
	engine := givenObservedEngine(t, logger, metrics)

	// act
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Dune"))

	// assert
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	assert.True(t, logger.HasInfoLog("checkout allowed"))
	assert.True(t, metrics.HasDurationRecord(lending.EvaluateDurationMetric))
	assert.True(t, metrics.HasCounterRecord(lending.DecisionsMetric, map[string]string{
		"status": "allowed",
		"role":   "regular",
	}))
}

func Test_Evaluate_LogsAndCountsDeniedDecision(t *testing.T) {
	// arrange
	logger := testdoubles.NewContextualLoggerSpy(true)
	metrics := testdoubles.NewMetricsCollectorSpy(true)
	engine := givenObservedEngine(t, logger, metrics)

	// empty batches never reach the rule pipeline, a redundant-categories
	// item does and is denied by the first rule
	request := requestFor("patron-1", lending.RoleRegular, "Tangled")

	// act
	decision, err := engine.Evaluate(context.Background(), request)

	// assert
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	assert.True(t, logger.HasInfoLog("checkout denied"))
	assert.True(t, metrics.HasCounterRecord(lending.DecisionsMetric, map[string]string{
		"status":      "denied",
		"failed_rule": string(lending.RuleItemResolution),
	}))
}

func Test_Evaluate_LogsCollaboratorFailure(t *testing.T) {
	// arrange
	logger := testdoubles.NewContextualLoggerSpy(true)
	metrics := testdoubles.NewMetricsCollectorSpy(true)

	store := givenStoreWithCatalog(t)
	store.FailHistory(errors.New("connection refused"))

	engine, err := lending.NewEngine(givenFixtureHierarchy(t), store, store, givenTestConfig(t),
		lending.WithContextualLogger(logger),
		lending.WithMetrics(metrics),
	)
	require.NoError(t, err)

	// act
	_, evalErr := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Dune"))

	// assert
	require.ErrorIs(t, evalErr, lending.ErrHistoryUnavailable)
	assert.True(t, logger.HasErrorLog("checkout evaluation failed"))
	assert.Empty(t, metrics.GetCounterRecords())
}

func Test_Evaluate_SilentSpiesRecordNothing(t *testing.T) {
	// arrange
	logger := testdoubles.NewContextualLoggerSpy(false)
	metrics := testdoubles.NewMetricsCollectorSpy(false)
	engine := givenObservedEngine(t, logger, metrics)

	// act
	_, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Dune"))

	// assert
	require.NoError(t, err)
	assert.Zero(t, logger.GetTotalRecordCount())
	assert.Empty(t, metrics.GetDurationRecords())
}

func givenTracedEngine(t *testing.T, tracing *testdoubles.TracingCollectorSpy, store *memoryengine.Store) *lending.Engine {
	t.Helper()

	engine, err := lending.NewEngine(givenFixtureHierarchy(t), store, store, givenTestConfig(t),
		lending.WithTracing(tracing))
	require.NoError(t, err)

	return engine
}

func Test_Evaluate_TracesAllowedDecision(t *testing.T) {
	// arrange
	tracing := testdoubles.NewTracingCollectorSpy(true)
	engine := givenTracedEngine(t, tracing, givenStoreWithCatalog(t))

	// act
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Dune"))

	// assert
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	records := tracing.GetSpanRecords()
	require.Len(t, records, 1)
	assert.Equal(t, "eligibility.evaluate", records[0].Name)
	assert.Equal(t, "patron-1", records[0].StartAttributes["patron_id"])
	assert.Equal(t, "regular", records[0].StartAttributes["role"])
	assert.Equal(t, "allowed", records[0].Status)
	assert.Contains(t, records[0].EndAttributes, "duration_ms")
}

func Test_Evaluate_TracesDeniedDecisionWithFailedRule(t *testing.T) {
	// arrange
	tracing := testdoubles.NewTracingCollectorSpy(true)
	engine := givenTracedEngine(t, tracing, givenStoreWithCatalog(t))

	// act
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Tangled"))

	// assert
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	records := tracing.GetSpanRecords()
	require.Len(t, records, 1)
	assert.Equal(t, "denied", records[0].Status)
	assert.Equal(t, string(lending.RuleItemResolution), records[0].EndAttributes["failed_rule"])
}

func Test_Evaluate_TracesCollaboratorFailure(t *testing.T) {
	// arrange
	tracing := testdoubles.NewTracingCollectorSpy(true)

	store := givenStoreWithCatalog(t)
	store.FailHistory(errors.New("connection refused"))

	engine := givenTracedEngine(t, tracing, store)

	// act
	_, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Dune"))

	// assert
	require.ErrorIs(t, err, lending.ErrHistoryUnavailable)

	records := tracing.GetSpanRecords()
	require.Len(t, records, 1)
	assert.Equal(t, "error", records[0].Status)
}

func Test_EvaluateExtension_TracesDecision(t *testing.T) {
	// arrange
	tracing := testdoubles.NewTracingCollectorSpy(true)
	engine := givenTracedEngine(t, tracing, givenStoreWithCatalog(t))

	request := lending.RenewalRequest{
		PatronID: "patron-1",
		Role:     lending.RoleRegular,
		LoanID:   "loan-1",
		AsOf:     evalDate,
	}

	// act
	decision, err := engine.EvaluateExtension(context.Background(), request)

	// assert
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	records := tracing.GetSpanRecords()
	require.Len(t, records, 1)
	assert.Equal(t, "eligibility.evaluate_extension", records[0].Name)
	assert.Equal(t, "allowed", records[0].Status)
}

func Test_Evaluate_RecordsDurationInMilliseconds(t *testing.T) {
	// arrange
	metrics := testdoubles.NewMetricsCollectorSpy(true)
	engine := givenObservedEngine(t, testdoubles.NewContextualLoggerSpy(false), metrics)

	// act
	_, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Dune"))

	// assert
	require.NoError(t, err)

	records := metrics.GetDurationRecords()
	require.Len(t, records, 1)
	assert.Equal(t, lending.EvaluateDurationMetric, records[0].Metric)
	assert.Less(t, records[0].Duration, time.Second)
}
