// internal/model/model.go
package model

import (
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which
// represent tables in the database schema.
var DatabaseModels = []interface{}{
	&PathSlot{},
}

// PathSlot is the single-row storage slot holding the whole path
// collection as one serialized JSON blob. Every save rewrites the full
// blob; there are no partial writes. Two processes sharing the same
// slot resolve concurrent writes last-write-wins.
type PathSlot struct {
	SlotName  string         `json:"slotName" gorm:"primaryKey;size:127"`
	Data      datatypes.JSON `json:"data"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
