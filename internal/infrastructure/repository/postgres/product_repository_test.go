package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mrops-br/products-catalog-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *uuid.UUID:
			*p = r.values[i].(uuid.UUID)
		case *string:
			*p = r.values[i].(string)
		case *float64:
			*p = r.values[i].(float64)
		case *int:
			*p = r.values[i].(int)
		default:
			return errors.New("unexpected scan target")
		}
	}
	return nil
}

type call struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls   []call
	row     fakeRow
	tag     pgconn.CommandTag
	execErr error
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.calls = append(db.calls, call{sql: sql, args: args})
	return db.tag, db.execErr
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.calls = append(db.calls, call{sql: sql, args: args})
	return nil, errors.New("connection reset")
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db.calls = append(db.calls, call{sql: sql, args: args})
	return db.row
}

func newTestRepository(db *fakeDB) *ProductRepository {
	return NewProductRepository(db, noop.NewTracerProvider().Tracer("test"), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func productRow(id uuid.UUID) fakeRow {
	return fakeRow{values: []any{id, "Desk", "Furniture", 120.0, 4}}
}

func TestAddAssignsID(t *testing.T) {
	id := uuid.New()
	db := &fakeDB{row: productRow(id)}
	repo := newTestRepository(db)

	got, err := repo.Add(context.Background(), &domain.Product{ProductName: "Desk", Category: domain.CategoryFurniture, UnitPrice: 120, QuantityInStock: 4})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.CategoryFurniture, got.Category)

	require.Len(t, db.calls, 1)
	assert.Equal(t, insertProduct, db.calls[0].sql)
	assigned, ok := db.calls[0].args[0].(uuid.UUID)
	require.True(t, ok)
	assert.NotEqual(t, uuid.Nil, assigned)
	assert.Equal(t, "Furniture", db.calls[0].args[2])
}

func TestAddKeepsGivenID(t *testing.T) {
	id := uuid.New()
	db := &fakeDB{row: productRow(id)}
	repo := newTestRepository(db)

	_, err := repo.Add(context.Background(), &domain.Product{ProductID: id, ProductName: "Desk"})
	require.NoError(t, err)
	assert.Equal(t, id, db.calls[0].args[0])
}

func TestAddDuplicateIsDeclined(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	repo := newTestRepository(db)

	got, err := repo.Add(context.Background(), &domain.Product{ProductID: uuid.New()})
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestAddStoreFailure(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: errors.New("disk full")}}
	repo := newTestRepository(db)

	got, err := repo.Add(context.Background(), &domain.Product{})
	assert.ErrorContains(t, err, "disk full")
	assert.Nil(t, got)
}

func TestUpdateUnknownID(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	repo := newTestRepository(db)

	got, err := repo.Update(context.Background(), &domain.Product{ProductID: uuid.New()})
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, updateProduct, db.calls[0].sql)
}

func TestUpdate(t *testing.T) {
	id := uuid.New()
	db := &fakeDB{row: productRow(id)}
	repo := newTestRepository(db)

	got, err := repo.Update(context.Background(), &domain.Product{ProductID: id, ProductName: "Desk", Category: domain.CategoryFurniture, UnitPrice: 120, QuantityInStock: 4})
	require.NoError(t, err)
	assert.Equal(t, &domain.Product{ProductID: id, ProductName: "Desk", Category: domain.CategoryFurniture, UnitPrice: 120, QuantityInStock: 4}, got)
	assert.Equal(t, []any{id, "Desk", "Furniture", 120.0, 4}, db.calls[0].args)
}

func TestGetOneByCondition(t *testing.T) {
	id := uuid.New()
	db := &fakeDB{row: productRow(id)}
	repo := newTestRepository(db)

	got, err := repo.GetOneByCondition(context.Background(), domain.ByID(id))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ProductID)
	assert.Contains(t, db.calls[0].sql, "WHERE product_id = $1")
	assert.Contains(t, db.calls[0].sql, "LIMIT 1")
	assert.Equal(t, []any{id}, db.calls[0].args)
}

func TestGetOneByConditionNotFound(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	repo := newTestRepository(db)

	got, err := repo.GetOneByCondition(context.Background(), domain.Contains(domain.FieldProductName, "x"))
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvalidConditionNeverReachesDatabase(t *testing.T) {
	db := &fakeDB{}
	repo := newTestRepository(db)

	_, err := repo.GetAllByCondition(context.Background(), domain.Contains(domain.FieldUnitPrice, "1"))
	assert.Error(t, err)
	_, err = repo.GetOneByCondition(context.Background(), domain.Equals(domain.Field("Color"), "red"))
	assert.Error(t, err)
	assert.Empty(t, db.calls)
}

func TestGetAllQueryFailure(t *testing.T) {
	db := &fakeDB{}
	repo := newTestRepository(db)

	got, err := repo.GetAll(context.Background())
	assert.ErrorContains(t, err, "connection reset")
	assert.Nil(t, got)
	assert.Contains(t, db.calls[0].sql, "WHERE TRUE")
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name    string
		tag     pgconn.CommandTag
		execErr error
		want    bool
		wantErr bool
	}{
		{name: "deleted", tag: pgconn.NewCommandTag("DELETE 1"), want: true},
		{name: "unknown id", tag: pgconn.NewCommandTag("DELETE 0"), want: false},
		{name: "store failure", execErr: errors.New("timeout"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{tag: tt.tag, execErr: tt.execErr}
			repo := newTestRepository(db)
			id := uuid.New()

			got, err := repo.Delete(context.Background(), id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, deleteProduct, db.calls[0].sql)
			assert.Equal(t, []any{id}, db.calls[0].args)
		})
	}
}
