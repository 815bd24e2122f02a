package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusUnprocessableEntity, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeUpstream, status: http.StatusBadGateway, publicMsg: "marketplace unavailable", retryable: true, detailsOK: true},
		{code: CodeAuthExpired, status: http.StatusUnauthorized, publicMsg: "marketplace authorization expired, please re-authenticate"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeNotFound, "no product")
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeWalksWrappedErrors(t *testing.T) {
	inner := New(CodeAuthExpired, "refresh exhausted")
	outer := Wrap(CodeUpstream, inner, "search orders")
	wrapped := fmt.Errorf("sync date: %w", outer)

	if !IsCode(wrapped, CodeAuthExpired) {
		t.Fatalf("expected auth expired to be found in chain")
	}
	if !IsCode(wrapped, CodeUpstream) {
		t.Fatalf("expected upstream to be found in chain")
	}
	if IsCode(wrapped, CodeNotFound) {
		t.Fatalf("did not expect not found")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("untyped errors should map to internal")
	}
	if CodeOf(wrapped) != CodeUpstream {
		t.Fatalf("expected outermost typed code")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("connection refused"), "load product")
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("unexpected dump code %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}
}

func TestDumpExtractsDriverDetail(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_product_mappings_sku_product", TableName: "product_mappings"}
	dump := Dump(Wrap(CodeConflict, fmt.Errorf("insert mapping: %w", pgErr), "duplicate mapping"))
	if dump.PGCode != "23505" || dump.PGConstraint != "ux_product_mappings_sku_product" || dump.PGTable != "product_mappings" {
		t.Fatalf("unexpected pg detail %+v", dump)
	}

	pqErr := &pq.Error{Code: "23503", Table: "order_items"}
	if dump := Dump(Wrap(CodeDependency, pqErr, "insert item")); dump.PGCode != "23503" || dump.PGTable != "order_items" {
		t.Fatalf("unexpected pq detail %+v", dump)
	}

	sqliteErr := stdErrors.New("UNIQUE constraint failed: pending_sales.platform_id, pending_sales.order_id")
	dump = Dump(Wrap(CodeDependency, sqliteErr, "insert pending sale"))
	if dump.SQLiteConstraint != "pending_sales.platform_id, pending_sales.order_id" {
		t.Fatalf("unexpected sqlite constraint %q", dump.SQLiteConstraint)
	}
	if dump.PGCode != "" {
		t.Fatalf("sqlite errors carry no pg code")
	}
}
