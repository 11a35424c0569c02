package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestDomainErrorCodes(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad", nil), CodeValidationFailed, http.StatusBadRequest},
		{NewNotFound("ticket", nil), CodeNotFound, http.StatusNotFound},
		{NewAlreadyClaimed("u1", nil), CodeAlreadyClaimed, http.StatusConflict},
		{NewAlreadyClosed(nil), CodeAlreadyClosed, http.StatusConflict},
		{NewNoPendingRequest(nil), CodeNoPendingRequest, http.StatusConflict},
		{NewPermissionDenied("", nil), CodePermissionDenied, http.StatusForbidden},
		{NewUnauthorized("no"), CodeUnauthorized, http.StatusUnauthorized},
		{NewConflict("races", nil), CodeConflict, http.StatusConflict},
		{NewStoreError(errors.New("io")), CodeStoreError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if !HasCode(tc.err, tc.code) {
			t.Fatalf("expected code %s for %v", tc.code, tc.err)
		}
		domainErr := ToDomainError(tc.err)
		if domainErr.HTTPStatus != tc.status {
			t.Fatalf("expected status %d for %s, got %d", tc.status, tc.code, domainErr.HTTPStatus)
		}
	}
}

func TestAlreadyClaimedCarriesHolder(t *testing.T) {
	err := NewAlreadyClaimed("u1", map[string]any{"ticket_number": int64(7)})
	domainErr := ToDomainError(err)
	if domainErr.Details["claimed_by"] != "u1" {
		t.Fatalf("missing claimed_by: %v", domainErr.Details)
	}
	if domainErr.Details["ticket_number"] != int64(7) {
		t.Fatalf("extra details dropped: %v", domainErr.Details)
	}
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	domainErr := ToDomainError(fmt.Errorf("load: %w", pgx.ErrNoRows))
	if domainErr.Code != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", domainErr.Code)
	}
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	domainErr := ToDomainError(errors.New("surprise"))
	if domainErr.Code != CodeStoreError || domainErr.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected mapping: %+v", domainErr)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStoreError(cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause lost")
	}
}

func TestPredicates(t *testing.T) {
	if !IsAlreadyClaimed(NewAlreadyClaimed("u1", nil)) {
		t.Fatal("IsAlreadyClaimed")
	}
	if !IsAlreadyClosed(NewAlreadyClosed(nil)) {
		t.Fatal("IsAlreadyClosed")
	}
	if !IsNoPendingRequest(NewNoPendingRequest(nil)) {
		t.Fatal("IsNoPendingRequest")
	}
	if !IsNotFound(NewNotFound("x", nil)) {
		t.Fatal("IsNotFound")
	}
	if !IsPermissionDenied(NewPermissionDenied("", nil)) {
		t.Fatal("IsPermissionDenied")
	}
	if IsAlreadyClaimed(errors.New("other")) {
		t.Fatal("predicate matched non-domain error")
	}
}
