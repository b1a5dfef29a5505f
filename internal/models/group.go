package models

import (
	"gorm.io/gorm"
)

type ListKind string

const (
	ListKindRole  ListKind = "ROLE"
	ListKindGroup ListKind = "GROUP"
)

// DistributionList maps a ROLE or GROUP recipient descriptor to the shared
// mailbox reports for that audience are delivered to.
type DistributionList struct {
	gorm.Model
	Kind        ListKind `json:"kind" gorm:"index:idx_list_kind_key,unique;not null"`
	Key         string   `json:"key" gorm:"index:idx_list_kind_key,unique;not null"` // role name or group key
	Email       string   `json:"email" gorm:"not null"`
	DisplayName string   `json:"display_name"`
}
