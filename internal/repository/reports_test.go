package repository

import (
	"errors"
	"testing"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/reportstore"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestInsertErr(t *testing.T) {
	assert.NoError(t, insertErr(nil))

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}
	assert.ErrorIs(t, insertErr(dup), reportstore.ErrExists)
	assert.NotErrorIs(t, insertErr(dup), apperr.ErrStorageFailure)

	err := insertErr(errors.New("connection reset"))
	assert.ErrorIs(t, err, apperr.ErrStorageFailure)
	assert.NotErrorIs(t, err, reportstore.ErrExists)
}
