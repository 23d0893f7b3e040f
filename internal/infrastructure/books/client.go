package books

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	appsettlement "github.com/sellerledger/backend/internal/application/settlement"
	"github.com/sellerledger/backend/internal/domain/accounting"
	"github.com/sellerledger/backend/internal/domain/shared"
)

const (
	sessionHeader = "X-Session-Token"
	dateLayout    = "2006-01-02"
)

// Client implements the AccountingClient port against the accounting
// system's HTTP API. Every response may rotate the session token; callers
// must thread the returned session into their next call.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new accounting system client
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}, nil
}

// FetchJournalEntry fetches one journal entry's identity by id
func (c *Client) FetchJournalEntry(ctx context.Context, sess appsettlement.Session, id string) (accounting.JournalEntryRef, appsettlement.Session, error) {
	var dto journalEntryDTO
	sess, err := c.get(ctx, sess, "/journalentries/"+url.PathEscape(id), nil, &dto)
	if err != nil {
		return accounting.JournalEntryRef{}, sess, err
	}

	txnDate, err := time.Parse(dateLayout, dto.TxnDate)
	if err != nil {
		return accounting.JournalEntryRef{}, sess, fmt.Errorf("books: journal entry %s has invalid txn date %q: %w", id, dto.TxnDate, err)
	}

	return accounting.JournalEntryRef{
		ID:        dto.ID,
		DocNumber: dto.DocNumber,
		TxnDate:   txnDate,
	}, sess, nil
}

// FetchAccounts fetches the chart of accounts
func (c *Client) FetchAccounts(ctx context.Context, sess appsettlement.Session, includeInactive bool) ([]accounting.Account, appsettlement.Session, error) {
	query := url.Values{}
	if includeInactive {
		query.Set("include_inactive", "true")
	}

	var dto accountListDTO
	sess, err := c.get(ctx, sess, "/accounts", query, &dto)
	if err != nil {
		return nil, sess, err
	}

	accounts := make([]accounting.Account, len(dto.Accounts))
	for i, a := range dto.Accounts {
		accounts[i] = accounting.Account{
			ID:       a.ID,
			Name:     a.Name,
			ParentID: a.ParentID,
			Type:     a.Type,
			Active:   a.Active,
		}
	}
	return accounts, sess, nil
}

// FetchBills fetches one page of bills dated on or before endDate
func (c *Client) FetchBills(ctx context.Context, sess appsettlement.Session, endDate time.Time, startPosition, maxResults int) ([]appsettlement.Bill, appsettlement.Session, error) {
	query := url.Values{}
	query.Set("end_date", endDate.Format(dateLayout))
	query.Set("start_position", strconv.Itoa(startPosition))
	query.Set("max_results", strconv.Itoa(maxResults))

	var dto billListDTO
	sess, err := c.get(ctx, sess, "/bills", query, &dto)
	if err != nil {
		return nil, sess, err
	}

	bills := make([]appsettlement.Bill, 0, len(dto.Bills))
	for _, b := range dto.Bills {
		txnDate, err := time.Parse(dateLayout, b.TxnDate)
		if err != nil {
			return nil, sess, fmt.Errorf("books: bill %s has invalid txn date %q: %w", b.ID, b.TxnDate, err)
		}
		lines := make([]appsettlement.BillLine, len(b.Lines))
		for i, l := range b.Lines {
			lines[i] = appsettlement.BillLine{
				AccountName: l.AccountName,
				SKU:         l.SKU,
				Units:       l.Units,
				AmountCents: l.AmountCents,
				Description: l.Description,
			}
		}
		bills = append(bills, appsettlement.Bill{ID: b.ID, TxnDate: txnDate, Lines: lines})
	}
	return bills, sess, nil
}

// CreateJournalEntry posts a journal entry and returns its id
func (c *Client) CreateJournalEntry(ctx context.Context, sess appsettlement.Session, entry accounting.Entry) (string, appsettlement.Session, error) {
	lines := make([]journalLineDTO, len(entry.Lines))
	for i, l := range entry.Lines {
		lines[i] = journalLineDTO{
			AccountID:   l.AccountID,
			PostingType: string(l.PostingType),
			AmountCents: l.AmountCents,
			Description: l.Description,
		}
	}
	payload := journalEntryDTO{
		DocNumber:   entry.DocNumber,
		TxnDate:     entry.TxnDate.Format(dateLayout),
		PrivateNote: entry.PrivateNote,
		Lines:       lines,
	}

	var dto createEntryResponseDTO
	sess, err := c.do(ctx, sess, http.MethodPost, "/journalentries", nil, payload, &dto)
	if err != nil {
		return "", sess, err
	}
	return dto.ID, sess, nil
}

// get performs an idempotent read with retries on transient failures.
func (c *Client) get(ctx context.Context, sess appsettlement.Session, path string, query url.Values, out any) (appsettlement.Session, error) {
	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		next, err := c.do(ctx, sess, http.MethodGet, path, query, nil, out)
		if err == nil {
			return next, nil
		}
		sess = next
		lastErr = err
		if !isRetryable(err) {
			return sess, err
		}
		select {
		case <-ctx.Done():
			return sess, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}
	return sess, lastErr
}

func (c *Client) do(ctx context.Context, sess appsettlement.Session, method, path string, query url.Values, payload, out any) (appsettlement.Session, error) {
	u := c.config.BaseURL + "/companies/" + url.PathEscape(c.config.CompanyID) + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return sess, fmt.Errorf("books: failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return sess, fmt.Errorf("books: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return sess, &transientError{err: fmt.Errorf("books: request failed: %w", err)}
	}
	defer resp.Body.Close()

	// The server rotates session tokens; pick up the replacement if sent.
	if refreshed := resp.Header.Get(sessionHeader); refreshed != "" {
		sess = appsettlement.Session{Token: refreshed}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return sess, fmt.Errorf("books: %s %s: %w", method, path, shared.ErrUnauthenticated)
	case resp.StatusCode == http.StatusNotFound:
		return sess, fmt.Errorf("books: %s %s: %w", method, path, shared.ErrNotFound)
	case resp.StatusCode >= 500:
		return sess, &transientError{err: c.apiError(method, path, resp)}
	case resp.StatusCode >= 400:
		return sess, c.apiError(method, path, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return sess, fmt.Errorf("books: failed to decode response: %w", err)
		}
	}
	return sess, nil
}

func (c *Client) apiError(method, path string, resp *http.Response) error {
	var apiErr errorResponseDTO
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("books: %s %s returned %d: %s (%s)", method, path, resp.StatusCode, apiErr.Message, apiErr.Code)
	}
	return fmt.Errorf("books: %s %s returned %d", method, path, resp.StatusCode)
}

// transientError marks failures worth retrying on idempotent reads.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
