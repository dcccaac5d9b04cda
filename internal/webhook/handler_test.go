package webhook_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/eventlog"
	"github.com/noah-isme/backend-billing/internal/webhook"
)

type memStore struct {
	labels []string
	err    error
}

func (m *memStore) Insert(_ context.Context, label string) (eventlog.Record, error) {
	if m.err != nil {
		return eventlog.Record{}, m.err
	}
	m.labels = append(m.labels, label)
	return eventlog.Record{ID: uuid.New(), Label: label, OccurredAt: time.Now()}, nil
}

func (m *memStore) ListRecent(context.Context, int) ([]eventlog.Record, error) {
	return nil, nil
}

func newHandler(store eventlog.Store, secret string) *webhook.Handler {
	return &webhook.Handler{
		Verifier: webhook.Verifier{Secret: secret},
		Recorder: webhook.Recorder{Store: store},
		Log:      zerolog.Nop(),
	}
}

func post(h *webhook.Handler, body []byte, sigHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if sigHeader != "" {
		req.Header.Set(webhook.SignatureHeader, sigHeader)
	}
	rr := httptest.NewRecorder()
	h.Handle(rr, req)
	return rr
}

func TestHandleCompletedSessionAppendsOneRecord(t *testing.T) {
	store := &memStore{}
	handler := newHandler(store, testSecret)

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","created":1700000000}`)
	body, header := signedPayload(t, payload, testSecret)

	rr := post(handler, body, header)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []string{"payment succeeded"}, store.labels)
}

func TestHandleUnknownTypeAppendsNothing(t *testing.T) {
	store := &memStore{}
	handler := newHandler(store, testSecret)

	payload := []byte(`{"id":"evt_2","type":"invoice.paid","created":1700000000}`)
	body, header := signedPayload(t, payload, testSecret)

	rr := post(handler, body, header)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"ignored":true`)
	require.Empty(t, store.labels)
}

func TestHandleTamperedBodyRejected(t *testing.T) {
	store := &memStore{}
	handler := newHandler(store, testSecret)

	original := []byte(`{"id":"evt_3","type":"invoice.paid"}`)
	_, header := signedPayload(t, original, testSecret)
	tampered := []byte(`{"id":"evt_3","type":"checkout.session.completed"}`)

	rr := post(handler, tampered, header)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Empty(t, store.labels)
}

func TestHandleMissingSignatureRejected(t *testing.T) {
	handler := newHandler(&memStore{}, testSecret)

	rr := post(handler, []byte(`{"type":"checkout.session.completed"}`), "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleStorageFailureStillAcknowledges(t *testing.T) {
	store := &memStore{err: errors.New("connection refused")}
	handler := newHandler(store, testSecret)

	payload := []byte(`{"id":"evt_4","type":"customer.subscription.deleted","created":1700000000}`)
	body, header := signedPayload(t, payload, testSecret)

	rr := post(handler, body, header)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHandleUnverifiedModeTrustsPayload(t *testing.T) {
	store := &memStore{}
	handler := newHandler(store, "")

	payload := []byte(`{"id":"evt_5","type":"customer.subscription.updated","created":1700000000}`)
	rr := post(handler, payload, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []string{"subscription updated"}, store.labels)
}

func TestHandleDuplicateDeliveriesDuplicateRecords(t *testing.T) {
	store := &memStore{}
	handler := newHandler(store, testSecret)

	payload := []byte(`{"id":"evt_6","type":"checkout.session.completed","created":1700000000}`)
	body, header := signedPayload(t, payload, testSecret)

	require.Equal(t, http.StatusOK, post(handler, body, header).Code)
	require.Equal(t, http.StatusOK, post(handler, body, header).Code)
	require.Equal(t, []string{"payment succeeded", "payment succeeded"}, store.labels)
}

func TestReplayGuardSuppressesDuplicates(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &memStore{}
	handler := newHandler(store, testSecret)
	handler.Replay = &webhook.ReplayGuard{Client: client, TTL: time.Minute}

	payload := []byte(`{"id":"evt_7","type":"checkout.session.completed","created":1700000000}`)
	body, header := signedPayload(t, payload, testSecret)

	require.Equal(t, http.StatusOK, post(handler, body, header).Code)
	second := post(handler, body, header)
	require.Equal(t, http.StatusOK, second.Code)
	require.Contains(t, second.Body.String(), `"duplicate":true`)
	require.Equal(t, []string{"payment succeeded"}, store.labels)
}

func TestReplayGuardFailureDoesNotBlock(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	srv.Close()

	store := &memStore{}
	handler := newHandler(store, testSecret)
	handler.Replay = &webhook.ReplayGuard{Client: client, TTL: time.Minute}

	payload := []byte(`{"id":"evt_8","type":"checkout.session.completed","created":1700000000}`)
	body, header := signedPayload(t, payload, testSecret)

	rr := post(handler, body, header)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []string{"payment succeeded"}, store.labels)
}
