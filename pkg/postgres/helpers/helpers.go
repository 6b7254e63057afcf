package helpers

import "gorm.io/gorm"

// WrapTxAndCommit executes fn within a transaction. If tx is provided the
// caller owns commit/rollback; otherwise a new transaction is opened and
// committed or rolled back based on fn's error.
func WrapTxAndCommit[T any](fn func(*gorm.DB) (T, error), db *gorm.DB, tx *gorm.DB) (T, error) {
	exists := tx != nil

	if !exists {
		tx = db.Begin()
	}

	res, err := fn(tx)

	if err != nil && !exists {
		tx.Rollback()
	}
	if err == nil && !exists {
		tx.Commit()
	}
	return res, err
}
