package books

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appsettlement "github.com/sellerledger/backend/internal/application/settlement"
	"github.com/sellerledger/backend/internal/domain/accounting"
	"github.com/sellerledger/backend/internal/domain/shared"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		BaseURL:    server.URL,
		CompanyID:  "co-1",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	return client, server
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(&Config{CompanyID: "co-1"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrMissingBaseURL)

	_, err = NewClient(&Config{BaseURL: "http://x"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrMissingCompanyID)
}

func TestFetchJournalEntry(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/companies/co-1/journalentries/settle-1", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Header().Set(sessionHeader, "tok-2")
		json.NewEncoder(w).Encode(journalEntryDTO{
			ID:        "settle-1",
			DocNumber: "SE-AMAZON_US-2026-07-01-2026-07-14",
			TxnDate:   "2026-07-14",
		})
	}))

	ref, sess, err := client.FetchJournalEntry(context.Background(), appsettlement.Session{Token: "tok-1"}, "settle-1")
	require.NoError(t, err)
	assert.Equal(t, "SE-AMAZON_US-2026-07-01-2026-07-14", ref.DocNumber)
	assert.Equal(t, 2026, ref.TxnDate.Year())
	assert.Equal(t, "tok-2", sess.Token, "rotated session token is picked up")
}

func TestUnauthorizedSurfacesErrUnauthenticated(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, _, err := client.FetchAccounts(context.Background(), appsettlement.Session{Token: "stale"}, true)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestMissingEntrySurfacesErrNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, _, err := client.FetchJournalEntry(context.Background(), appsettlement.Session{Token: "tok"}, "nope")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFetchBillsQueryParameters(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2026-07-14", q.Get("end_date"))
		assert.Equal(t, "101", q.Get("start_position"))
		assert.Equal(t, "100", q.Get("max_results"))
		json.NewEncoder(w).Encode(billListDTO{Bills: []billDTO{{
			ID:      "bill-1",
			TxnDate: "2026-06-01",
			Lines: []billLineDTO{{
				AccountName: "Manufacturing Costs",
				SKU:         "WIDGET-A",
				Units:       10,
				AmountCents: 5000,
			}},
		}}})
	}))

	endDate := time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)
	bills, _, err := client.FetchBills(context.Background(), appsettlement.Session{Token: "tok"}, endDate, 101, 100)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	require.Len(t, bills[0].Lines, 1)
	assert.Equal(t, int64(5000), bills[0].Lines[0].AmountCents)
}

func TestCreateJournalEntry(t *testing.T) {
	var received journalEntryDTO
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(createEntryResponseDTO{ID: "je-9"})
	}))

	entry := accounting.Entry{
		TxnDate:   time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC),
		DocNumber: "SE-X-2026-07-01-2026-07-14-COGS",
		Lines: []accounting.Line{
			{AccountID: "cogs-acme", PostingType: accounting.Debit, AmountCents: 1000},
			{AccountID: "inv-acme", PostingType: accounting.Credit, AmountCents: 1000},
		},
	}

	id, _, err := client.CreateJournalEntry(context.Background(), appsettlement.Session{Token: "tok"}, entry)
	require.NoError(t, err)
	assert.Equal(t, "je-9", id)
	assert.Equal(t, "SE-X-2026-07-01-2026-07-14-COGS", received.DocNumber)
	require.Len(t, received.Lines, 2)
	assert.Equal(t, "DEBIT", received.Lines[0].PostingType)
}

func TestServerErrorRetriesThenFails(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(&Config{
		BaseURL:    server.URL,
		CompanyID:  "co-1",
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	}, zap.NewNop())
	require.NoError(t, err)

	_, _, err = client.FetchAccounts(context.Background(), appsettlement.Session{Token: "tok"}, false)
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestClientErrorDoesNotRetry(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errorResponseDTO{Code: "BAD_REQUEST", Message: "no"})
	}))

	_, _, err := client.FetchAccounts(context.Background(), appsettlement.Session{Token: "tok"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD_REQUEST")
	assert.Equal(t, 1, attempts)
}
