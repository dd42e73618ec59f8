package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestFindOrCreateIsOrderIndependent(t *testing.T) {
	db := setupTestDB(t)
	s := NewConversationService(db)

	first, created, err := s.FindOrCreate([]string{"client1", "talent1"}, nil, "")
	assert.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.FindOrCreate([]string{"talent1", "client1"}, nil, "")
	assert.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestFindOrCreateDistinguishesProjectRef(t *testing.T) {
	db := setupTestDB(t)
	s := NewConversationService(db)

	general, _, err := s.FindOrCreate([]string{"client1", "talent1"}, nil, "")
	assert.NoError(t, err)

	project, created, err := s.FindOrCreate([]string{"client1", "talent1"}, strPtr("proj9"), "Audiobook narration")
	assert.NoError(t, err)
	assert.True(t, created, "same participants, different project ref is a different conversation")
	assert.NotEqual(t, general.ID, project.ID)
	assert.Equal(t, "Audiobook narration", project.ProjectTitle)

	again, created, err := s.FindOrCreate([]string{"talent1", "client1"}, strPtr("proj9"), "ignored on find")
	assert.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, project.ID, again.ID)
}

func TestFindOrCreateRejectsBadParticipants(t *testing.T) {
	db := setupTestDB(t)
	s := NewConversationService(db)

	_, _, err := s.FindOrCreate([]string{"only-one"}, nil, "")
	assert.Error(t, err)

	_, _, err = s.FindOrCreate([]string{"u1", "u1"}, nil, "")
	assert.Error(t, err)
}

func TestGetAndIsParticipant(t *testing.T) {
	db := setupTestDB(t)
	s := NewConversationService(db)

	conv, _, err := s.FindOrCreate([]string{"client1", "talent1"}, nil, "")
	assert.NoError(t, err)

	loaded, err := s.Get(conv.ID)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"client1", "talent1"}, loaded.ParticipantIDs())

	ok, err := s.IsParticipant(conv.ID, "client1")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsParticipant(conv.ID, "stranger")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get("no-such-id")
	assert.Error(t, err)
}

func TestListForUser(t *testing.T) {
	db := setupTestDB(t)
	msgs, convSvc := newTestMessageService(t, db)

	convA, _, err := convSvc.FindOrCreate([]string{"me", "alice"}, nil, "")
	assert.NoError(t, err)
	convB, _, err := convSvc.FindOrCreate([]string{"me", "bob"}, nil, "")
	assert.NoError(t, err)

	_, err = msgs.Append(convA.ID, "alice", "me", "older thread", "text", nil)
	assert.NoError(t, err)
	_, err = msgs.Append(convB.ID, "bob", "me", "newer thread", "text", nil)
	assert.NoError(t, err)
	_, err = msgs.Append(convB.ID, "bob", "me", "another one", "text", nil)
	assert.NoError(t, err)

	summaries, err := convSvc.ListForUser("me")
	assert.NoError(t, err)
	assert.Len(t, summaries, 2)

	// Most recent activity first.
	assert.Equal(t, convB.ID, summaries[0].Conversation.ID)
	assert.Equal(t, int64(2), summaries[0].UnreadCount)
	assert.Equal(t, "another one", summaries[0].LastMessage.Content)

	assert.Equal(t, convA.ID, summaries[1].Conversation.ID)
	assert.Equal(t, int64(1), summaries[1].UnreadCount)

	// A user with no conversations gets an empty list.
	none, err := convSvc.ListForUser("stranger")
	assert.NoError(t, err)
	assert.Empty(t, none)
}
