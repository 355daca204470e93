package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "with detail",
			err:  New(NotFoundError, "Trip not found", "ID: trip-abc"),
			want: "NOT_FOUND: Trip not found (ID: trip-abc)",
		},
		{
			name: "without detail",
			err:  New(ServerError, "something broke", ""),
			want: "SERVER_ERROR: something broke",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestHelperConstructors(t *testing.T) {
	nf := NotFound("trip", "trip-123")
	assert.Equal(t, NotFoundError, nf.Type)
	assert.Equal(t, http.StatusNotFound, nf.HTTPStatus)
	assert.Contains(t, nf.Detail, "trip-123")

	ae := AlreadyExists("trip", "trip-123")
	assert.Equal(t, AlreadyExistsError, ae.Type)
	assert.Equal(t, http.StatusConflict, ae.HTTPStatus)

	vc := VersionConflict("trip-123", 3, 4)
	assert.Equal(t, VersionConflictError, vc.Type)
	assert.Equal(t, http.StatusConflict, vc.HTTPStatus)
	assert.Contains(t, vc.Detail, "expected version 3")

	vf := ValidationFailed("missing trip_id", "trip_id is required")
	assert.Equal(t, ValidationError, vf.Type)
	assert.Equal(t, http.StatusBadRequest, vf.HTTPStatus)
}

func TestWrap(t *testing.T) {
	raw := errors.New("connection refused")
	wrapped := Wrap(raw, DatabaseError, "query failed")
	assert.Equal(t, DatabaseError, wrapped.Type)
	assert.Equal(t, "connection refused", wrapped.Detail)
	assert.ErrorIs(t, wrapped, raw)

	assert.Nil(t, Wrap(nil, DatabaseError, "never happens"))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("trip", "x")))
	assert.True(t, IsAlreadyExists(AlreadyExists("trip", "x")))
	assert.True(t, IsVersionConflict(VersionConflict("x", 1, 2)))
	assert.True(t, IsValidation(ValidationFailed("bad", "")))

	// Predicates must see through wrapping.
	wrapped := fmt.Errorf("store: %w", VersionConflict("x", 1, 2))
	assert.True(t, IsVersionConflict(wrapped))

	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsVersionConflict(nil))
}
