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

package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Txn is a simple transaction handle for commit/rollback only.
type Txn interface {
	Commit() error
	Rollback() error
}

// ErrNilTxn is returned when a nil transaction is provided where a valid transaction is required
var ErrNilTxn = errors.New("nil transaction")

// ErrTxnWrongType is returned when a transaction has the wrong type
var ErrTxnWrongType = errors.New("invalid transaction type")

// MemberIDList stores an ordered set of member IDs as a JSON column.
//
//nolint:recvcheck
type MemberIDList []uint64

func (l MemberIDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]uint64(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *MemberIDList) Scan(val any) error {
	var data []byte
	switch v := val.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	var tmp []uint64
	if err := json.Unmarshal(data, &tmp); err != nil {
		return fmt.Errorf("failed to decode member ID list: %w", err)
	}
	*l = MemberIDList(tmp)
	return nil
}

// Contains reports whether the list includes the given member ID
func (l MemberIDList) Contains(memberID uint64) bool {
	for _, id := range l {
		if id == memberID {
			return true
		}
	}
	return false
}
