// Package models defines the domain models for the seqbench backend.
package models

import (
	"time"
)

// DatasetSource discriminates where a dataset association lives: attached to
// a user history (hda) or to a shared data library (ldda).
type DatasetSource string

const (
	DatasetSourceHDA  DatasetSource = "hda"
	DatasetSourceLDDA DatasetSource = "ldda"
)

// Valid reports whether the source discriminator is one of the known kinds.
func (s DatasetSource) Valid() bool {
	return s == DatasetSourceHDA || s == DatasetSourceLDDA
}

// DatasetState represents the lifecycle state of a dataset.
type DatasetState string

const (
	DatasetStateNew     DatasetState = "new"
	DatasetStateQueued  DatasetState = "queued"
	DatasetStateRunning DatasetState = "running"
	DatasetStateOK      DatasetState = "ok"
	DatasetStateError   DatasetState = "error"
	DatasetStateDiscard DatasetState = "discarded"
)

// Dataset represents a dataset association visible through the API. The ID is
// an opaque encoded identifier whose encoding is owned by the gateway layer.
type Dataset struct {
	ID            string        `json:"id"`
	HistoryID     string        `json:"history_id,omitempty"`
	Name          string        `json:"name"`
	Extension     string        `json:"extension"`
	State         DatasetState  `json:"state"`
	Source        DatasetSource `json:"hda_ldda"`
	Deleted       bool          `json:"deleted"`
	Purged        bool          `json:"purged"`
	Visible       bool          `json:"visible"`
	FileSize      int64         `json:"file_size"`
	CopiedFromID  *string       `json:"copied_from_id,omitempty"`
	ObjectStoreID string        `json:"object_store_id,omitempty"`
	CreatedAt     time.Time     `json:"create_time"`
	UpdatedAt     time.Time     `json:"update_time"`
}

// DatasetStorageDetails describes the object store a dataset resides in.
type DatasetStorageDetails struct {
	ObjectStoreID string       `json:"object_store_id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	DatasetState  DatasetState `json:"dataset_state"`
	FileSize      int64        `json:"file_size"`
}

// InheritanceEntry is one ancestor in a dataset's copy chain.
type InheritanceEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
}

// DatasetInheritanceChain is the copy ancestry of a dataset, nearest first.
type DatasetInheritanceChain []InheritanceEntry

// DatasetTextContentDetails carries dataset content decoded as text.
type DatasetTextContentDetails struct {
	ItemData  string `json:"item_data"`
	Truncated bool   `json:"truncated"`
}

// ConvertedDatasetsMap maps a target extension to the identifier of the
// existing dataset converted to that extension.
type ConvertedDatasetsMap map[string]string

// ExtraFileEntry describes one file belonging to a composite dataset.
type ExtraFileEntry struct {
	Class string `json:"class"`
	Path  string `json:"path"`
}

// UpdateDatasetPermissionsPayload is the canonical shape of a permissions
// update after alias normalization.
type UpdateDatasetPermissionsPayload struct {
	Action    string   `json:"action"`
	AccessIDs []string `json:"access_ids[]"`
	ManageIDs []string `json:"manage_ids[]"`
	ModifyIDs []string `json:"modify_ids[]"`
}

// DatasetAssociationRoles lists the role ids currently attached to a dataset
// per permission action.
type DatasetAssociationRoles struct {
	AccessDatasetRoles []string `json:"access_dataset_roles"`
	ManageDatasetRoles []string `json:"manage_dataset_roles"`
	ModifyItemRoles    []string `json:"modify_item_roles"`
}

// RequestDataType selects an alternate response shape for the polymorphic
// show endpoint.
type RequestDataType string

const (
	RequestDataTypeState                  RequestDataType = "state"
	RequestDataTypeConvertedDatasetsState RequestDataType = "converted_datasets_state"
	RequestDataTypeInUseState             RequestDataType = "in_use_state"
)

// Valid reports whether the data type is one of the supported discriminators.
func (t RequestDataType) Valid() bool {
	switch t {
	case RequestDataTypeState, RequestDataTypeConvertedDatasetsState, RequestDataTypeInUseState:
		return true
	}
	return false
}
