package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omics-warehouse-loader/internal/domain"
)

// Statement-level tests against a mocked driver; the sqlite tests above
// cover the real schema.
func TestSQLiteStore_InsertStatements(t *testing.T) {
	ctx := context.Background()

	t.Run("gene insert", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := NewSQLiteStoreWithDB(db)

		gene := domain.NewGene("7157")
		mock.ExpectExec("INSERT INTO genes").
			WithArgs(gene.RecordID.String(), "7157").
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, store.StoreGene(ctx, gene))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("experiment attributes are marshalled", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := NewSQLiteStoreWithDB(db)

		experiment := domain.NewExperiment("exp1", "human")
		experiment.Attributes["project"] = "validation"
		mock.ExpectExec("INSERT INTO experiments").
			WithArgs(experiment.RecordID.String(), "exp1", "human", `{"project":"validation"}`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, store.StoreExperiment(ctx, experiment))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver errors are wrapped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := NewSQLiteStoreWithDB(db)

		mock.ExpectExec("INSERT INTO genes").
			WillReturnError(errors.New("disk full"))

		err = store.StoreGene(ctx, domain.NewGene("7157"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert gene")
	})
}
