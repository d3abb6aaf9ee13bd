package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/patronflow/lending-eligibility-go/lending"
	"github.com/patronflow/lending-eligibility-go/lending/postgresengine/internal/adapters"
)

const (
	defaultRecordsTableName = "circulation_records"
	defaultCatalogTableName = "catalog_editions"

	recordTypeCheckout = "ItemsCheckedOut"
	recordTypeRenewal  = "LoanRenewed"

	logMsgBuildQueryFailed    = "failed to build sql query"
	logMsgDBQueryFailed       = "database query execution failed"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgScanRowFailed       = "failed to scan database row"
	logMsgDecodePayloadFailed = "failed to decode record payload"
	logMsgEncodePayloadFailed = "failed to encode record payload"
	logMsgDBExecFailed        = "database execution failed during record append"
	logMsgRowsAffectedFailed  = "failed to get rows affected count"
	logMsgHistoryQueried      = "history queried"
	logMsgCatalogResolved     = "catalog edition resolved"
	logMsgRecordAppended      = "circulation record appended"
	logMsgSQLExecuted         = "executed sql for: "
	logMsgOperation           = "circulation store operation: "
	logAttrError              = "error"
	logAttrQuery              = "query"
	logAttrRecordType         = "record_type"
	logAttrItemCount          = "item_count"
	logAttrDurationMS         = "duration_ms"
	logActionQuery            = "query"
	logActionAppend           = "append"
	colRecordType             = "record_type"
	colOccurredAt             = "occurred_at"
	colPayload                = "payload"
	colItemName               = "item_name"
	colEditionName            = "edition_name"
	dialectPostgres           = "postgres"
	metricQueryDuration       = "circulation_store_query_duration_seconds"
	metricAppendDuration      = "circulation_store_append_duration_seconds"
	metricStoreErrors         = "circulation_store_errors_total"
	spanNameQuery             = "circulation_store.query"
	spanNameAppend            = "circulation_store.append"
	statusSuccess             = "success"
	statusError               = "error"
	labelOperation            = "operation"
	operationItemsLoaned      = "items_loaned_within"
	operationItemsOnDate      = "items_loaned_on_date"
	operationItemsIssued      = "items_issued_by_staff_on_date"
	operationRenewalsWithin   = "renewals_within"
	operationResolveEdition   = "resolve_edition"
	operationActiveLoanCount  = "active_loan_count"
	operationRecordCheckout   = "record_checkout"
	operationRecordRenewal    = "record_renewal"
)

type sqlQueryString = string

// CirculationStore is the PostgreSQL implementation of the engine's three
// collaborator contracts: lending.HistoryQuery, lending.CatalogLookup and
// lending.LoanRecorder.
//
// Circulation records live in an append-only table
// (record_type, occurred_at, payload jsonb); windowed history queries use
// jsonb containment predicates on the payload, so a GIN index on the
// payload column is expected. The catalog lives in a separate table keyed
// by item and edition name with a jsonb payload for categories and
// capacity.
type CirculationStore struct {
	db               adapters.DBAdapter
	recordsTableName string
	catalogTableName string
	logger           lending.Logger
	metricsCollector lending.MetricsCollector
	tracingCollector lending.TracingCollector
	contextualLogger lending.ContextualLogger
}

// NewCirculationStoreFromPGXPool creates a CirculationStore using a pgx pool
// with optional configuration.
func NewCirculationStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (CirculationStore, error) {
	if db == nil {
		return CirculationStore{}, lending.ErrNilDatabaseConnection
	}

	return newCirculationStore(adapters.NewPGXAdapter(db), options...)
}

// NewCirculationStoreFromPGXPoolWithReplica creates a CirculationStore that
// routes read queries to a replica pool and writes to the primary.
func NewCirculationStoreFromPGXPoolWithReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (CirculationStore, error) {
	if db == nil || replica == nil {
		return CirculationStore{}, lending.ErrNilDatabaseConnection
	}

	return newCirculationStore(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewCirculationStoreFromSQLDB creates a CirculationStore using a sql.DB
// with optional configuration.
func NewCirculationStoreFromSQLDB(db *sql.DB, options ...Option) (CirculationStore, error) {
	if db == nil {
		return CirculationStore{}, lending.ErrNilDatabaseConnection
	}

	return newCirculationStore(adapters.NewSQLAdapter(db), options...)
}

// NewCirculationStoreFromSQLX creates a CirculationStore using a sqlx.DB
// with optional configuration.
func NewCirculationStoreFromSQLX(db *sqlx.DB, options ...Option) (CirculationStore, error) {
	if db == nil {
		return CirculationStore{}, lending.ErrNilDatabaseConnection
	}

	return newCirculationStore(adapters.NewSQLXAdapter(db), options...)
}

func newCirculationStore(db adapters.DBAdapter, options ...Option) (CirculationStore, error) {
	store := CirculationStore{
		db:               db,
		recordsTableName: defaultRecordsTableName,
		catalogTableName: defaultCatalogTableName,
	}

	for _, option := range options {
		if err := option(&store); err != nil {
			return CirculationStore{}, err
		}
	}

	return store, nil
}

// checkoutPayload is the jsonb shape of one checkout record. Field names
// are part of the storage format: the containment predicates below match
// on them.
type checkoutPayload struct {
	RecordID string              `json:"RecordID"`
	PatronID string              `json:"PatronID"`
	IssuedBy string              `json:"IssuedBy"`
	Items    []loanedItemPayload `json:"Items"`
}

type loanedItemPayload struct {
	ItemName    string   `json:"ItemName"`
	EditionName string   `json:"EditionName"`
	CategoryIDs []string `json:"CategoryIDs"`
}

type renewalPayload struct {
	RecordID string `json:"RecordID"`
	LoanID   string `json:"LoanID"`
	PatronID string `json:"PatronID"`
}

// catalogPayload is the jsonb shape of one catalog_editions row.
type catalogPayload struct {
	EditionID            string   `json:"EditionID"`
	CategoryIDs          []string `json:"CategoryIDs"`
	TotalCopies          int      `json:"TotalCopies"`
	ReservedOnSiteCopies int      `json:"ReservedOnSiteCopies"`
}

// ItemsLoanedWithin returns all items from the patron's checkout records
// whose date lies in (asOf-window, asOf], oldest first.
func (s CirculationStore) ItemsLoanedWithin(
	ctx context.Context,
	patronID string,
	window time.Duration,
	asOf time.Time,
) ([]lending.LoanedItem, error) {

	containment, err := payloadContains(map[string]string{"PatronID": patronID})
	if err != nil {
		return nil, err
	}

	stmt := goqu.Dialect(dialectPostgres).
		From(s.recordsTableName).
		Select(colOccurredAt, colPayload).
		Where(goqu.And(
			goqu.Ex{colRecordType: recordTypeCheckout},
			containment,
			goqu.C(colOccurredAt).Gt(asOf.Add(-window)),
			goqu.C(colOccurredAt).Lte(asOf),
		)).
		Order(goqu.I(colOccurredAt).Asc())

	sqlQuery, err := s.toSQL(stmt, operationItemsLoaned)
	if err != nil {
		return nil, err
	}

	rows, duration, err := s.executeQuery(ctx, sqlQuery, operationItemsLoaned)
	if err != nil {
		return nil, err
	}
	defer s.closeRows(rows)

	items, err := s.scanLoanedItems(rows, operationItemsLoaned)
	if err != nil {
		return nil, err
	}

	s.logOperation(ctx, logMsgHistoryQueried,
		logAttrItemCount, len(items),
		logAttrDurationMS, durationToMilliseconds(duration),
	)
	s.recordDuration(ctx, metricQueryDuration, duration, operationItemsLoaned)

	return items, nil
}

// ItemsLoanedOnDate counts the items checked out by the patron on the given
// UTC calendar day.
func (s CirculationStore) ItemsLoanedOnDate(ctx context.Context, patronID string, date time.Time) (int, error) {
	return s.countItemsOnDay(ctx, map[string]string{"PatronID": patronID}, date, operationItemsOnDate)
}

// ItemsIssuedByStaffOnDate counts the items the staff member issued to any
// patron on the given UTC calendar day.
func (s CirculationStore) ItemsIssuedByStaffOnDate(ctx context.Context, staffID string, date time.Time) (int, error) {
	return s.countItemsOnDay(ctx, map[string]string{"IssuedBy": staffID}, date, operationItemsIssued)
}

func (s CirculationStore) countItemsOnDay(
	ctx context.Context,
	predicate map[string]string,
	date time.Time,
	operation string,
) (int, error) {

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	containment, err := payloadContains(predicate)
	if err != nil {
		return 0, err
	}

	stmt := goqu.Dialect(dialectPostgres).
		From(s.recordsTableName).
		Select(colPayload).
		Where(goqu.And(
			goqu.Ex{colRecordType: recordTypeCheckout},
			containment,
			goqu.C(colOccurredAt).Gte(dayStart),
			goqu.C(colOccurredAt).Lt(dayStart.Add(24*time.Hour)),
		))

	sqlQuery, err := s.toSQL(stmt, operation)
	if err != nil {
		return 0, err
	}

	rows, duration, err := s.executeQuery(ctx, sqlQuery, operation)
	if err != nil {
		return 0, err
	}
	defer s.closeRows(rows)

	count := 0
	var payload []byte

	for rows.Next() {
		if scanErr := rows.Scan(&payload); scanErr != nil {
			s.logError(ctx, logMsgScanRowFailed, scanErr)
			return 0, errors.Join(lending.ErrScanningDBRowFailed, scanErr)
		}

		var record checkoutPayload
		if decodeErr := jsoniter.ConfigFastest.Unmarshal(payload, &record); decodeErr != nil {
			s.logError(ctx, logMsgDecodePayloadFailed, decodeErr)
			return 0, errors.Join(lending.ErrDecodingRecordFailed, decodeErr)
		}

		count += len(record.Items)
	}

	s.recordDuration(ctx, metricQueryDuration, duration, operation)

	return count, nil
}

// RenewalsWithin counts the patron's renewal records whose date lies in
// (asOf-window, asOf].
func (s CirculationStore) RenewalsWithin(
	ctx context.Context,
	patronID string,
	window time.Duration,
	asOf time.Time,
) (int, error) {

	containment, err := payloadContains(map[string]string{"PatronID": patronID})
	if err != nil {
		return 0, err
	}

	stmt := goqu.Dialect(dialectPostgres).
		From(s.recordsTableName).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.And(
			goqu.Ex{colRecordType: recordTypeRenewal},
			containment,
			goqu.C(colOccurredAt).Gt(asOf.Add(-window)),
			goqu.C(colOccurredAt).Lte(asOf),
		))

	return s.countQuery(ctx, stmt, operationRenewalsWithin)
}

// ResolveEdition looks up an item/edition name pair in the catalog table.
// A missing row is reported as an error wrapping lending.ErrUnknownItem.
func (s CirculationStore) ResolveEdition(ctx context.Context, itemName string, editionName string) (lending.ResolvedItem, error) {
	var empty lending.ResolvedItem

	stmt := goqu.Dialect(dialectPostgres).
		From(s.catalogTableName).
		Select(colPayload).
		Where(goqu.Ex{
			colItemName:    itemName,
			colEditionName: editionName,
		})

	sqlQuery, err := s.toSQL(stmt, operationResolveEdition)
	if err != nil {
		return empty, err
	}

	rows, duration, err := s.executeQuery(ctx, sqlQuery, operationResolveEdition)
	if err != nil {
		return empty, err
	}
	defer s.closeRows(rows)

	if !rows.Next() {
		return empty, fmt.Errorf("%w: %s / %s", lending.ErrUnknownItem, itemName, editionName)
	}

	var payload []byte
	if scanErr := rows.Scan(&payload); scanErr != nil {
		s.logError(ctx, logMsgScanRowFailed, scanErr)
		return empty, errors.Join(lending.ErrScanningDBRowFailed, scanErr)
	}

	var entry catalogPayload
	if decodeErr := jsoniter.ConfigFastest.Unmarshal(payload, &entry); decodeErr != nil {
		s.logError(ctx, logMsgDecodePayloadFailed, decodeErr)
		return empty, errors.Join(lending.ErrDecodingRecordFailed, decodeErr)
	}

	s.logOperation(ctx, logMsgCatalogResolved,
		logAttrDurationMS, durationToMilliseconds(duration),
	)
	s.recordDuration(ctx, metricQueryDuration, duration, operationResolveEdition)

	return lending.ResolvedItem{
		ItemName: itemName,
		Edition: lending.Edition{
			ID:   entry.EditionID,
			Name: editionName,
			Capacity: lending.EditionCapacity{
				TotalCopies:          entry.TotalCopies,
				ReservedOnSiteCopies: entry.ReservedOnSiteCopies,
			},
		},
		CategoryIDs: toCategoryIDs(entry.CategoryIDs),
	}, nil
}

// ActiveLoanCount counts checkout records containing the given item/edition
// pair with a date strictly before asOf. Loans are active indefinitely
// once recorded; returns are not modeled.
func (s CirculationStore) ActiveLoanCount(ctx context.Context, itemName string, editionName string, asOf time.Time) (int, error) {
	containment, err := itemContainment(itemName, editionName)
	if err != nil {
		return 0, err
	}

	stmt := goqu.Dialect(dialectPostgres).
		From(s.recordsTableName).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.And(
			goqu.Ex{colRecordType: recordTypeCheckout},
			containment,
			goqu.C(colOccurredAt).Lt(asOf),
		))

	return s.countQuery(ctx, stmt, operationActiveLoanCount)
}

// RecordCheckout appends one checkout record. The record's date is
// immutable once written; nothing in this store updates or deletes rows.
func (s CirculationStore) RecordCheckout(ctx context.Context, record lending.LoanRecord) error {
	items := make([]loanedItemPayload, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, loanedItemPayload{
			ItemName:    item.ItemName,
			EditionName: item.EditionName,
			CategoryIDs: fromCategoryIDs(item.CategoryIDs),
		})
	}

	payload := checkoutPayload{
		RecordID: record.RecordID,
		PatronID: record.PatronID,
		IssuedBy: record.IssuedBy,
		Items:    items,
	}

	return s.appendRecord(ctx, recordTypeCheckout, record.OccurredAt, payload, operationRecordCheckout)
}

// RecordRenewal appends one renewal record attached to an existing loan.
func (s CirculationStore) RecordRenewal(ctx context.Context, record lending.RenewalRecord) error {
	payload := renewalPayload{
		RecordID: record.RecordID,
		LoanID:   record.LoanID,
		PatronID: record.PatronID,
	}

	return s.appendRecord(ctx, recordTypeRenewal, record.OccurredAt, payload, operationRecordRenewal)
}

func (s CirculationStore) appendRecord(
	ctx context.Context,
	recordType string,
	occurredAt time.Time,
	payload any,
	operation string,
) error {

	payloadJSON, encodeErr := jsoniter.ConfigFastest.Marshal(payload)
	if encodeErr != nil {
		s.logError(ctx, logMsgEncodePayloadFailed, encodeErr, logAttrRecordType, recordType)
		return errors.Join(lending.ErrEncodingRecordFailed, encodeErr)
	}

	stmt := goqu.Dialect(dialectPostgres).
		Insert(s.recordsTableName).
		Cols(colRecordType, colOccurredAt, colPayload).
		Rows(goqu.Record{
			colRecordType: recordType,
			colOccurredAt: occurredAt,
			colPayload:    string(payloadJSON),
		})

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, toSQLErr, logAttrRecordType, recordType)
		return errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	ctx, span := s.startTraceSpan(ctx, spanNameAppend, operation)

	start := time.Now()
	result, execErr := s.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	s.logQueryWithDuration(ctx, sqlQuery, logActionAppend, duration)

	if execErr != nil {
		s.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		s.recordError(ctx, operation)
		s.finishTraceSpan(span, statusError, duration)
		return errors.Join(lending.ErrRecordingFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		s.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)
		s.finishTraceSpan(span, statusError, duration)
		return errors.Join(lending.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	if rowsAffected < 1 {
		s.finishTraceSpan(span, statusError, duration)
		return lending.ErrRecordingFailed
	}

	s.finishTraceSpan(span, statusSuccess, duration)

	s.logOperation(ctx, logMsgRecordAppended,
		logAttrRecordType, recordType,
		logAttrDurationMS, durationToMilliseconds(duration),
	)
	s.recordDuration(ctx, metricAppendDuration, duration, operation)

	return nil
}

// countQuery executes a COUNT statement and scans the single result row.
func (s CirculationStore) countQuery(ctx context.Context, stmt *goqu.SelectDataset, operation string) (int, error) {
	sqlQuery, err := s.toSQL(stmt, operation)
	if err != nil {
		return 0, err
	}

	rows, duration, err := s.executeQuery(ctx, sqlQuery, operation)
	if err != nil {
		return 0, err
	}
	defer s.closeRows(rows)

	var count int64

	if rows.Next() {
		if scanErr := rows.Scan(&count); scanErr != nil {
			s.logError(ctx, logMsgScanRowFailed, scanErr)
			return 0, errors.Join(lending.ErrScanningDBRowFailed, scanErr)
		}
	}

	s.recordDuration(ctx, metricQueryDuration, duration, operation)

	return int(count), nil
}

// scanLoanedItems converts checkout record rows to loaned items, stamping
// each item with its record's date.
func (s CirculationStore) scanLoanedItems(rows adapters.DBRows, _ string) ([]lending.LoanedItem, error) {
	items := make([]lending.LoanedItem, 0)

	var occurredAt time.Time
	var payload []byte

	for rows.Next() {
		if scanErr := rows.Scan(&occurredAt, &payload); scanErr != nil {
			s.logError(context.Background(), logMsgScanRowFailed, scanErr)
			return nil, errors.Join(lending.ErrScanningDBRowFailed, scanErr)
		}

		var record checkoutPayload
		if decodeErr := jsoniter.ConfigFastest.Unmarshal(payload, &record); decodeErr != nil {
			s.logError(context.Background(), logMsgDecodePayloadFailed, decodeErr)
			return nil, errors.Join(lending.ErrDecodingRecordFailed, decodeErr)
		}

		for _, item := range record.Items {
			items = append(items, lending.LoanedItem{
				ItemName:    item.ItemName,
				EditionName: item.EditionName,
				CategoryIDs: toCategoryIDs(item.CategoryIDs),
				LoanedAt:    occurredAt,
			})
		}
	}

	return items, nil
}

func (s CirculationStore) toSQL(stmt *goqu.SelectDataset, operation string) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		s.logError(context.Background(), logMsgBuildQueryFailed, toSQLErr, labelOperation, operation)
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// executeQuery executes the SQL query and returns rows with timing information.
func (s CirculationStore) executeQuery(ctx context.Context, sqlQuery string, operation string) (
	adapters.DBRows,
	time.Duration,
	error,
) {

	ctx, span := s.startTraceSpan(ctx, spanNameQuery, operation)

	start := time.Now()
	rows, queryErr := s.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	s.logQueryWithDuration(ctx, sqlQuery, logActionQuery, duration)

	if queryErr != nil {
		s.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		s.recordError(ctx, operation)
		s.finishTraceSpan(span, statusError, duration)

		return nil, duration, errors.Join(lending.ErrQueryingRecordsFailed, queryErr)
	}

	s.finishTraceSpan(span, statusSuccess, duration)

	return rows, duration, nil
}

// closeRows safely closes database rows and logs any errors.
func (s CirculationStore) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if s.logger != nil {
			s.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

// payloadContains builds a jsonb containment predicate on the payload column.
func payloadContains(fields map[string]string) (goqu.Expression, error) {
	doc, err := jsoniter.ConfigFastest.Marshal(fields)
	if err != nil {
		return nil, errors.Join(lending.ErrBuildingQueryFailed, err)
	}

	return goqu.L(fmt.Sprintf(`%s @> '%s'`, colPayload, string(doc))), nil
}

// itemContainment builds a containment predicate matching checkout records
// whose Items array holds the given item/edition pair.
func itemContainment(itemName, editionName string) (goqu.Expression, error) {
	doc, err := jsoniter.ConfigFastest.Marshal(map[string]any{
		"Items": []map[string]string{{
			"ItemName":    itemName,
			"EditionName": editionName,
		}},
	})
	if err != nil {
		return nil, errors.Join(lending.ErrBuildingQueryFailed, err)
	}

	return goqu.L(fmt.Sprintf(`%s @> '%s'`, colPayload, string(doc))), nil
}

func toCategoryIDs(ids []string) []lending.CategoryID {
	categoryIDs := make([]lending.CategoryID, 0, len(ids))
	for _, id := range ids {
		categoryIDs = append(categoryIDs, lending.CategoryID(id))
	}

	return categoryIDs
}

func fromCategoryIDs(ids []lending.CategoryID) []string {
	plain := make([]string, 0, len(ids))
	for _, id := range ids {
		plain = append(plain, string(id))
	}

	return plain
}

// logQueryWithDuration logs SQL queries with execution time at debug level if a logger is configured.
func (s CirculationStore) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action,
			logAttrDurationMS, durationToMilliseconds(duration), logAttrQuery, sqlQuery)
		return
	}

	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action,
			logAttrDurationMS, durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (s CirculationStore) logOperation(ctx context.Context, action string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}
}

// logError logs error information at error level if a logger is configured.
func (s CirculationStore) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if s.logger != nil {
		s.logger.Error(message, allArgs...)
	}
}

func (s CirculationStore) recordDuration(ctx context.Context, metric string, duration time.Duration, operation string) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelOperation: operation}

	if contextual, ok := s.metricsCollector.(lending.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	s.metricsCollector.RecordDuration(metric, duration, labels)
}

// startTraceSpan starts a tracing span if the tracing collector is configured.
func (s CirculationStore) startTraceSpan(ctx context.Context, name string, operation string) (context.Context, lending.SpanContext) {
	if s.tracingCollector == nil {
		return ctx, nil
	}

	return s.tracingCollector.StartSpan(ctx, name, map[string]string{labelOperation: operation})
}

// finishTraceSpan finishes a tracing span if the tracing collector is configured.
func (s CirculationStore) finishTraceSpan(span lending.SpanContext, status string, duration time.Duration) {
	if s.tracingCollector == nil || span == nil {
		return
	}

	s.tracingCollector.FinishSpan(span, status, map[string]string{
		logAttrDurationMS: fmt.Sprintf("%.3f", durationToMilliseconds(duration)),
	})
}

func (s CirculationStore) recordError(ctx context.Context, operation string) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelOperation: operation}

	if contextual, ok := s.metricsCollector.(lending.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metricStoreErrors, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metricStoreErrors, labels)
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
