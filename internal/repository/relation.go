package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Relation is a set of (owner, member) pairs stored as rows of a join table
// with a composite primary key. Add and Remove report whether the set
// actually changed, so callers can refuse double-likes and the like without
// a read-then-write race.
type Relation[T any] struct {
	db *gorm.DB
}

// NewRelation binds a relation to a join-table model
func NewRelation[T any](db *gorm.DB) *Relation[T] {
	return &Relation[T]{db: db}
}

// WithTx returns the same relation bound to a transaction
func (r *Relation[T]) WithTx(tx *gorm.DB) *Relation[T] {
	return &Relation[T]{db: tx}
}

// Add inserts row. ErrAlreadyMember if the primary key is taken.
func (r *Relation[T]) Add(ctx context.Context, row *T) error {
	err := r.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyMember
	}
	return err
}

// Remove deletes the rows matching where. ErrNotMember if none matched.
func (r *Relation[T]) Remove(ctx context.Context, where map[string]interface{}) error {
	if len(where) == 0 {
		return ErrInvalidInput
	}
	res := r.db.WithContext(ctx).Where(where).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotMember
	}
	return nil
}

// Clear deletes every row matching where and returns how many went.
// Unlike Remove, an empty result is not an error.
func (r *Relation[T]) Clear(ctx context.Context, where map[string]interface{}) (int64, error) {
	if len(where) == 0 {
		return 0, ErrInvalidInput
	}
	res := r.db.WithContext(ctx).Where(where).Delete(new(T))
	return res.RowsAffected, res.Error
}

// Contains reports whether any row matches where
func (r *Relation[T]) Contains(ctx context.Context, where map[string]interface{}) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where(where).Count(&count).Error
	return count > 0, err
}

// Count returns the number of rows matching where
func (r *Relation[T]) Count(ctx context.Context, where map[string]interface{}) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where(where).Count(&count).Error
	return count, err
}

// Pluck returns one column of the rows matching where
func (r *Relation[T]) Pluck(ctx context.Context, column string, where map[string]interface{}) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).Model(new(T)).Where(where).Pluck(column, &out).Error
	return out, err
}

// Find returns the rows matching where
func (r *Relation[T]) Find(ctx context.Context, where map[string]interface{}) ([]T, error) {
	var out []T
	err := r.db.WithContext(ctx).Where(where).Find(&out).Error
	return out, err
}
