package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	t.Parallel()
	op := NewOp("admin", "add")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"usage", op.Usage("Usage: /add"), KindUsage},
		{"not found through fmt wrap", fmt.Errorf("change: %w", ErrNotFound), KindNotFound},
		{"exists through reply", op.Fail(ErrAlreadyExists, "dup"), KindExists},
		{"anything else", errors.New("disk full"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestOp_Fail(t *testing.T) {
	t.Parallel()
	op := NewOp("admin", "assign")
	cause := errors.New("db locked")

	assert.NoError(t, op.Fail(nil, "ignored"))

	err := op.Failf(cause, "❌ Error assigning %s.", "GEOs")
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "admin.assign: db locked")
	assert.Equal(t, "❌ Error assigning GEOs.", ReplyText(err))

	var re *ReplyError
	if assert.ErrorAs(t, err, &re) {
		assert.Equal(t, Op("admin.assign"), re.Op)
	}
}

func TestOp_Usage(t *testing.T) {
	t.Parallel()
	err := NewOp("admin", "delete").Usage("Usage: /delete TEAM CONTACT MANAGER_ID")

	assert.True(t, IsInvalidInput(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "Usage: /delete TEAM CONTACT MANAGER_ID", ReplyText(err))
}

func TestReplyText(t *testing.T) {
	t.Parallel()
	assert.Empty(t, ReplyText(nil))
	assert.Equal(t, "plain", ReplyText(errors.New("plain")))

	inner := NewOp("export", "download").Fail(ErrNotFound, "Nothing to export.")
	assert.Equal(t, "Nothing to export.", ReplyText(fmt.Errorf("handler: %w", inner)))
}
