// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"sync"

	"gorm.io/gorm"
)

// Txn wraps a database transaction. It satisfies types.Txn. Commit and
// Rollback are idempotent; a rollback after commit is a no-op, which allows
// the `defer txn.Rollback()` pattern around a conditional commit.
type Txn struct {
	db       *Database
	tx       *gorm.DB
	finished bool
	mu       sync.Mutex
}

// Transaction starts a new database transaction
func (d *Database) Transaction() *Txn {
	return &Txn{
		db: d,
		tx: d.db.Begin(),
	}
}

// DB returns the transaction's gorm handle
func (t *Txn) DB() *gorm.DB {
	return t.tx
}

func (t *Txn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return nil
	}
	t.finished = true
	return t.tx.Commit().Error
}

func (t *Txn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return nil
	}
	t.finished = true
	return t.tx.Rollback().Error
}

// resolveDB returns the transaction handle when one is provided, otherwise
// the base connection
func (d *Database) resolveDB(txn *Txn) *gorm.DB {
	if txn != nil {
		return txn.tx
	}
	return d.db
}
