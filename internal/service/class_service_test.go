package service

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassService_Membership(t *testing.T) {
	store := newMemClasses()
	users := memUsers{
		student.UserID:  {BaseModel: model.BaseModel{ID: student.UserID}, Role: model.Student},
		teacher2.UserID: {BaseModel: model.BaseModel{ID: teacher2.UserID}, Role: model.Teacher},
	}
	svc := NewClassService(store, users)
	ctx := context.Background()

	_, err := svc.Create(ctx, ClassRequest{Name: "7B"}, student)
	assert.True(t, util.IsAuthorization(err))

	_, err = svc.Create(ctx, ClassRequest{Name: "   "}, teacher)
	assert.True(t, util.IsValidation(err))

	c, err := svc.Create(ctx, ClassRequest{Name: " 7B "}, teacher)
	require.NoError(t, err)
	assert.Equal(t, "7B", c.Name)
	assert.Equal(t, teacher.UserID, c.EducatorID)

	require.NoError(t, svc.AddMember(ctx, c.ID, student.UserID, teacher))
	assert.True(t, util.IsValidation(svc.AddMember(ctx, c.ID, teacher2.UserID, teacher)), "only students can join")
	assert.True(t, util.IsValidation(svc.AddMember(ctx, c.ID, 4040, teacher)), "unknown user")
	assert.True(t, util.IsAuthorization(svc.AddMember(ctx, c.ID, student.UserID, teacher2)), "not the owner")

	members, err := svc.Members(ctx, c.ID, teacher)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, student.UserID, members[0].StudentID)

	mine, err := svc.List(ctx, student)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, svc.RemoveMember(ctx, c.ID, student.UserID, admin))
	mine, err = svc.List(ctx, student)
	require.NoError(t, err)
	assert.Empty(t, mine)
}
