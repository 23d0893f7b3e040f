package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsettlement "github.com/sellerledger/backend/internal/application/settlement"
	"github.com/sellerledger/backend/internal/domain/settlement"
	"github.com/sellerledger/backend/internal/domain/shared"
	"github.com/sellerledger/backend/internal/interfaces/http/dto"
)

type fakeProcessor struct {
	preview    *appsettlement.Preview
	previewErr error
	processErr error

	lastSession appsettlement.Session
	lastID      string
}

func (f *fakeProcessor) Preview(_ context.Context, sess appsettlement.Session, id string) (*appsettlement.Preview, error) {
	f.lastSession = sess
	f.lastID = id
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	return f.preview, nil
}

func (f *fakeProcessor) Process(_ context.Context, sess appsettlement.Session, id string) (*appsettlement.Preview, error) {
	f.lastSession = sess
	f.lastID = id
	if f.processErr != nil {
		return nil, f.processErr
	}
	return f.preview, nil
}

func newSettlementRouter(processor SettlementProcessor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewSettlementHandler(processor).RegisterRoutes(api)
	return engine
}

func doRequest(t *testing.T, engine *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestPreviewReturnsPreview(t *testing.T) {
	processor := &fakeProcessor{preview: &appsettlement.Preview{
		SettlementJournalEntryID: "settle-1",
		Marketplace:              "AMAZON_US",
		InvoiceID:                "2026-07-01-2026-07-14",
		State:                    appsettlement.StateReady,
	}}
	engine := newSettlementRouter(processor)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/settlements/settle-1/preview", "tok-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "settle-1", processor.lastID)
	assert.Equal(t, "tok-1", processor.lastSession.Token)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, string(appsettlement.StateReady), data["state"])
	assert.Equal(t, "AMAZON_US", data["marketplace"])
}

func TestPreviewWithoutTokenIsUnauthorized(t *testing.T) {
	processor := &fakeProcessor{}
	engine := newSettlementRouter(processor)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/settlements/settle-1/preview", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, processor.lastID, "processor must not be called without a session")
}

func TestPreviewStaleSessionMapsTo401(t *testing.T) {
	processor := &fakeProcessor{previewErr: fmt.Errorf("books: GET /accounts: %w", shared.ErrUnauthenticated)}
	engine := newSettlementRouter(processor)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/settlements/settle-1/preview", "stale")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)
}

func TestProcessBlockedPreviewIsStillOK(t *testing.T) {
	processor := &fakeProcessor{preview: &appsettlement.Preview{
		SettlementJournalEntryID: "settle-1",
		State:                    appsettlement.StateBlocked,
		Blocks: settlement.BlockList{
			{Code: settlement.BlockMissingSkuMapping, Message: "SKU WIDGET-A has no brand mapping"},
		},
	}}
	engine := newSettlementRouter(processor)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/settlements/settle-1/process", "tok-1")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, string(appsettlement.StateBlocked), data["state"])
	assert.Len(t, data["blocks"], 1)
}

func TestProcessConcurrentCommitMapsTo409(t *testing.T) {
	processor := &fakeProcessor{processErr: fmt.Errorf("settlement settle-1 was processed concurrently: %w", shared.ErrAlreadyExists)}
	engine := newSettlementRouter(processor)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/settlements/settle-1/process", "tok-1")

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeAlreadyProcessed, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "processed concurrently")
}

func TestProcessLockContentionMapsTo409(t *testing.T) {
	processor := &fakeProcessor{processErr: fmt.Errorf("settlement settle-1 is being processed by another run: %w", shared.ErrConcurrencyConflict)}
	engine := newSettlementRouter(processor)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/settlements/settle-1/process", "tok-1")

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPreviewUnknownErrorIs500WithoutDetails(t *testing.T) {
	processor := &fakeProcessor{previewErr: fmt.Errorf("pq: connection reset")}
	engine := newSettlementRouter(processor)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/settlements/settle-1/preview", "tok-1")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "pq:", "driver errors must not leak to clients")
}

func TestPreviewInvalidDocNumberMapsTo422(t *testing.T) {
	processor := &fakeProcessor{previewErr: shared.NewDomainError("INVALID_DOC_NUMBER", `doc number "FOO" is not a settlement doc number`)}
	engine := newSettlementRouter(processor)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/settlements/settle-1/preview", "tok-1")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeInvalidDocNumber, resp.Error.Code)
}
