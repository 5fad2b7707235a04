package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dinner-agent/internal/domain"
)

func TestTranscript_AppendKeepsOrder(t *testing.T) {
	tr := NewTranscript()
	a := tr.Append(domain.RoleUser, "a", "r1")
	b := tr.Append(domain.RoleAssistant, "b", "r1")

	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, []domain.Message{a, b}, tr.Messages())
	require.Equal(t, 2, tr.Len())
}

func TestTranscript_RemovePendingOnly(t *testing.T) {
	tr := NewTranscript()
	user := tr.Append(domain.RoleUser, "q", "r1")
	pending := tr.Append(domain.RolePending, PendingText, "r1")
	require.Equal(t, 1, tr.Pending())

	require.False(t, tr.RemovePending(user.ID))
	require.False(t, tr.RemovePending("missing"))
	require.True(t, tr.RemovePending(pending.ID))
	require.False(t, tr.RemovePending(pending.ID))

	require.Equal(t, []domain.Message{user}, tr.Messages())
	require.Zero(t, tr.Pending())
}

func TestTranscript_MessagesIsACopy(t *testing.T) {
	tr := NewTranscript()
	tr.Append(domain.RoleUser, "q", "")
	msgs := tr.Messages()
	msgs[0].Text = "changed"
	require.Equal(t, "q", tr.Messages()[0].Text)
}
