package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"campus_coffee/internal/domain"
)

func TestValidationError_IsAndAs(t *testing.T) {
	err := fmt.Errorf("upsert: %w", domain.NotFound(domain.EntityPOS, 7))

	require.ErrorIs(t, err, domain.ErrReferenceNotFound)
	require.NotErrorIs(t, err, domain.ErrSelfApproval)
	require.True(t, domain.IsValidation(err))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, domain.EntityPOS, ve.Entity)
	require.Equal(t, "POS with ID '7' does not exist", ve.Error())
}

func TestValidationError_Kinds(t *testing.T) {
	cases := map[domain.ErrorKind]error{
		domain.KindEmptyContent: domain.ErrEmptyContent,
		domain.KindInvalidCount: domain.ErrInvalidCount,
		domain.KindSelfApproval: domain.ErrSelfApproval,
	}
	for kind, sentinel := range cases {
		err := domain.Invalid(kind)
		require.ErrorIs(t, err, sentinel, kind)
		require.Equal(t, sentinel.Error(), err.Error())
	}
	require.False(t, domain.IsValidation(domain.ErrNotFound))
}

func TestReview_Helpers(t *testing.T) {
	require.True(t, domain.Review{}.IsNew())
	require.False(t, domain.Review{ID: 1}.IsNew())
	require.False(t, domain.Review{Text: " \t\n"}.HasContent())
	require.True(t, domain.Review{Text: " ok "}.HasContent())
}
