package store

import (
	"gorm.io/gorm"
)

func Open(d gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(d)
}
