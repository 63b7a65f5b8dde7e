package biz

import (
	"context"

	"github.com/Shaswata28/studymate/internal/chat"
	"github.com/Shaswata28/studymate/internal/ent"
	"github.com/Shaswata28/studymate/internal/ent/chatturn"
)

// ChatHistory is the ent-backed chat.History (§6.4's chat_history table):
// append-only, bounded reads, turn_index assigned monotonically per course.
type ChatHistory struct {
	db *ent.Client
}

func NewChatHistory(db *ent.Client) *ChatHistory {
	return &ChatHistory{db: db}
}

var _ chat.History = (*ChatHistory)(nil)

// Recent returns the most recent limit turns for courseID, oldest first
// (P8): queried newest-first for the LIMIT, then reversed.
func (h *ChatHistory) Recent(ctx context.Context, courseID string, limit int) ([]chat.Turn, error) {
	rows, err := h.db.ChatTurn.Query().
		Where(chatturn.CourseID(courseID)).
		Order(ent.Desc(chatturn.FieldCreatedAt), ent.Desc(chatturn.FieldTurnIndex)).
		Limit(limit).
		All(ctx)
	if err != nil {
		return nil, err
	}

	turns := make([]chat.Turn, len(rows))
	for i, r := range rows {
		turns[len(rows)-1-i] = toChatTurn(r)
	}

	return turns, nil
}

func (h *ChatHistory) FindByDedupToken(ctx context.Context, courseID, token string) (*chat.Turn, bool, error) {
	if token == "" {
		return nil, false, nil
	}

	row, err := h.db.ChatTurn.Query().
		Where(
			chatturn.CourseID(courseID),
			chatturn.DedupToken(token),
			chatturn.RoleEQ(chatturn.RoleModel),
		).
		Only(ctx)
	if ent.IsNotFound(err) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	t := toChatTurn(row)

	return &t, true, nil
}

// Append writes the (user, model) pair in a single transaction, assigning
// each a monotonic turn_index, so a crash between the two inserts never
// leaves a half-written pair visible to a reader (§4.10, P10).
func (h *ChatHistory) Append(ctx context.Context, userTurn, modelTurn chat.Turn) error {
	tx, err := h.db.Tx(ctx)
	if err != nil {
		return err
	}

	last, err := tx.ChatTurn.Query().
		Where(chatturn.CourseID(userTurn.CourseID)).
		Order(ent.Desc(chatturn.FieldTurnIndex)).
		First(ctx)
	if err != nil && !ent.IsNotFound(err) {
		return rollback(tx, err)
	}

	nextIndex := 0
	if last != nil {
		nextIndex = last.TurnIndex + 1
	}

	if _, err := tx.ChatTurn.Create().
		SetCourseID(userTurn.CourseID).
		SetTurnIndex(nextIndex).
		SetRole(chatturn.RoleUser).
		SetContent(userTurn.Content).
		SetDedupToken(userTurn.DedupToken).
		Save(ctx); err != nil {
		return rollback(tx, err)
	}

	if _, err := tx.ChatTurn.Create().
		SetCourseID(modelTurn.CourseID).
		SetTurnIndex(nextIndex + 1).
		SetRole(chatturn.RoleModel).
		SetContent(modelTurn.Content).
		SetDedupToken(modelTurn.DedupToken).
		Save(ctx); err != nil {
		return rollback(tx, err)
	}

	return tx.Commit()
}

func rollback(tx *ent.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		return rerr
	}

	return err
}

func toChatTurn(r *ent.ChatTurn) chat.Turn {
	return chat.Turn{
		CourseID:   r.CourseID,
		Role:       string(r.Role),
		Content:    r.Content,
		DedupToken: r.DedupToken,
		CreatedAt:  r.CreatedAt,
	}
}
