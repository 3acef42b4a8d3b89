package types

import (
	"github.com/google/uuid"
)

// ActionItemStatus is the lifecycle status of an action item shown to an
// operator.
type ActionItemStatus string

const (
	// ActionItemBlocked means the item cannot be acted on yet because an
	// upstream item is unresolved.
	ActionItemBlocked ActionItemStatus = "blocked"

	// ActionItemTodo means the item is actionable now.
	ActionItemTodo ActionItemStatus = "todo"

	// ActionItemInProgress means the operator started but did not finish
	// the item.
	ActionItemInProgress ActionItemStatus = "in_progress"

	// ActionItemSuccess means the item was resolved.
	ActionItemSuccess ActionItemStatus = "success"

	// ActionItemWarning means the item resolved with a caveat.
	ActionItemWarning ActionItemStatus = "warning"

	// ActionItemError means resolving the item failed.
	ActionItemError ActionItemStatus = "error"
)

// ActionItemType discriminates the kinds of operator interaction an action
// item requests.
type ActionItemType string

const (
	// ActionItemReviewInput asks the operator to confirm a resolved value.
	ActionItemReviewInput ActionItemType = "review_input"

	// ActionItemProvideInput asks the operator to type a value.
	ActionItemProvideInput ActionItemType = "provide_input"

	// ActionItemPickInputOption asks the operator to choose from a list.
	ActionItemPickInputOption ActionItemType = "pick_input_option"

	// ActionItemProvidePublicKey asks a signer for its public key.
	ActionItemProvidePublicKey ActionItemType = "provide_public_key"

	// ActionItemProvideSignedTransaction asks a signer to sign a payload.
	ActionItemProvideSignedTransaction ActionItemType = "provide_signed_transaction"

	// ActionItemDisplayOutput shows a computed output to the operator.
	ActionItemDisplayOutput ActionItemType = "display_output"

	// ActionItemValidateBlock is the confirmation gate at the bottom of an
	// action panel; resolving it releases every item above it.
	ActionItemValidateBlock ActionItemType = "validate_block"
)

// InputOption is one choice of a pick-input-option item.
type InputOption struct {
	// Value is the machine value selected when this option is picked.
	Value Value `json:"value"`

	// DisplayName is the label shown to the operator.
	DisplayName string `json:"display_name"`
}

// ActionItemRequest is one unit of operator interaction. Its id is derived
// from the item's content, so re-emitting an unchanged item produces the
// same id and the frontend can deduplicate.
type ActionItemRequest struct {
	// Id identifies the item. Recompute with ComputeId after changing any
	// content field.
	Id Did `json:"id"`

	// ConstructDid is the construct this item belongs to; zero for panel
	// level items like the genesis validate gate.
	ConstructDid ConstructDid `json:"construct_did"`

	// Index orders items within their group.
	Index uint32 `json:"index"`

	// Title is the short label shown to the operator.
	Title string `json:"title"`

	// Description gives optional detail below the title.
	Description string `json:"description,omitempty"`

	// Type discriminates the interaction kind.
	Type ActionItemType `json:"type"`

	// Status is the item's current lifecycle status.
	Status ActionItemStatus `json:"status"`

	// InternalKey groups related items, e.g. all items of one signer.
	InternalKey string `json:"internal_key,omitempty"`

	// Payload carries type-specific data: the value under review, the
	// options to pick from, or the payload to sign.
	Payload *ValueStore `json:"-"`

	// Options lists the choices for pick-input-option items.
	Options []InputOption `json:"options,omitempty"`
}

// ComputeId derives the item's identity from its content. Status is
// excluded so a status change does not mint a new item.
func (r *ActionItemRequest) ComputeId() Did {
	components := [][]byte{
		r.ConstructDid.Did.Bytes(),
		[]byte(r.Title),
		[]byte(r.Description),
		[]byte(string(r.Type)),
		[]byte(r.InternalKey),
	}
	if r.Payload != nil {
		fp := r.Payload.Fingerprint()
		components = append(components, fp.Bytes())
	}
	for _, opt := range r.Options {
		fp := opt.Value.Fingerprint()
		components = append(components, fp.Bytes(), []byte(opt.DisplayName))
	}
	return NewDid(components...)
}

// ActionItemResponse is the operator's answer to an action item.
type ActionItemResponse struct {
	// ActionItemId names the item being answered.
	ActionItemId Did `json:"action_item_id"`

	// Payload is the type-specific answer.
	Payload ActionItemResponseType `json:"payload"`
}

// ActionItemResponseType is the union of operator answers. Exactly one
// concrete type applies per item type.
type ActionItemResponseType interface {
	isActionItemResponse()
}

// ReviewedInputResponse confirms or rejects a reviewed value.
type ReviewedInputResponse struct {
	InputName string `json:"input_name"`
	Approved  bool   `json:"approved"`
}

func (ReviewedInputResponse) isActionItemResponse() {}

// ProvidedInputResponse carries a typed-in value.
type ProvidedInputResponse struct {
	InputName string `json:"input_name"`
	Value     Value  `json:"value"`
}

func (ProvidedInputResponse) isActionItemResponse() {}

// PickedInputOptionResponse carries the selected option value.
type PickedInputOptionResponse struct {
	Value Value `json:"value"`
}

func (PickedInputOptionResponse) isActionItemResponse() {}

// ProvidedPublicKeyResponse carries a signer public key.
type ProvidedPublicKeyResponse struct {
	PublicKey []byte `json:"public_key"`
}

func (ProvidedPublicKeyResponse) isActionItemResponse() {}

// ProvidedSignedTransactionResponse carries signed payload bytes, or an
// error when signing was refused or failed.
type ProvidedSignedTransactionResponse struct {
	SignedPayload []byte `json:"signed_payload,omitempty"`
	SignerDid     Did    `json:"signer_did"`
	Error         string `json:"error,omitempty"`
}

func (ProvidedSignedTransactionResponse) isActionItemResponse() {}

// ValidateBlockResponse confirms an entire action panel.
type ValidateBlockResponse struct{}

func (ValidateBlockResponse) isActionItemResponse() {}

// ActionItemRequestUpdate is a partial update to an already-emitted item.
// Nil fields keep their previous value.
type ActionItemRequestUpdate struct {
	// Id names the item to update.
	Id Did `json:"id"`

	// Status replaces the item status when non-nil.
	Status *ActionItemStatus `json:"status,omitempty"`

	// Description replaces the description when non-nil.
	Description *string `json:"description,omitempty"`
}

// NewActionItemStatusUpdate builds an update that only changes status.
func NewActionItemStatusUpdate(id Did, status ActionItemStatus) ActionItemRequestUpdate {
	return ActionItemRequestUpdate{Id: id, Status: &status}
}

// ActionGroup collects related action items under one label.
type ActionGroup struct {
	// Title labels the group.
	Title string `json:"title"`

	// Items are the group's action items in display order.
	Items []*ActionItemRequest `json:"items"`
}

// ActionPanel is one screen of operator interaction: grouped action items
// closed by a validate gate.
type ActionPanel struct {
	// Title labels the panel.
	Title string `json:"title"`

	// Groups are the panel's item groups in display order.
	Groups []*ActionGroup `json:"groups"`
}

// Items flattens all groups into one slice in display order.
func (p *ActionPanel) Items() []*ActionItemRequest {
	var out []*ActionItemRequest
	for _, g := range p.Groups {
		out = append(out, g.Items...)
	}
	return out
}

// BlockEventType discriminates frontend event payloads.
type BlockEventType string

const (
	// BlockEventActionPanel introduces a new panel of action items.
	BlockEventActionPanel BlockEventType = "action_panel"

	// BlockEventUpdateActionItems patches previously emitted items.
	BlockEventUpdateActionItems BlockEventType = "update_action_items"

	// BlockEventProgress reports construct lifecycle progress.
	BlockEventProgress BlockEventType = "progress"

	// BlockEventError reports a fatal diagnostic.
	BlockEventError BlockEventType = "error"

	// BlockEventRunbookCompleted signals the end of the run.
	BlockEventRunbookCompleted BlockEventType = "runbook_completed"
)

// ProgressUpdate reports one construct's state change.
type ProgressUpdate struct {
	// ConstructDid identifies the construct.
	ConstructDid ConstructDid `json:"construct_did"`

	// State is the construct's new lifecycle state.
	State CommandState `json:"state"`

	// Message optionally describes the change.
	Message string `json:"message,omitempty"`
}

// BlockEvent is one message on the frontend event channel. Exactly one
// payload field is set, matching Type.
type BlockEvent struct {
	// Uuid identifies the event batch.
	Uuid uuid.UUID `json:"uuid"`

	// Type discriminates the payload.
	Type BlockEventType `json:"type"`

	// Panel is set for action-panel events.
	Panel *ActionPanel `json:"panel,omitempty"`

	// Updates is set for update-action-items events.
	Updates []ActionItemRequestUpdate `json:"updates,omitempty"`

	// Progress is set for progress events.
	Progress *ProgressUpdate `json:"progress,omitempty"`

	// Diagnostic is set for error events.
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
}

// NewActionPanelEvent wraps a panel in a block event.
func NewActionPanelEvent(panel *ActionPanel) BlockEvent {
	return BlockEvent{Uuid: uuid.New(), Type: BlockEventActionPanel, Panel: panel}
}

// NewUpdateEvent wraps item updates in a block event.
func NewUpdateEvent(updates []ActionItemRequestUpdate) BlockEvent {
	return BlockEvent{Uuid: uuid.New(), Type: BlockEventUpdateActionItems, Updates: updates}
}

// NewProgressEvent wraps a progress update in a block event.
func NewProgressEvent(did ConstructDid, state CommandState, message string) BlockEvent {
	return BlockEvent{
		Uuid: uuid.New(),
		Type: BlockEventProgress,
		Progress: &ProgressUpdate{
			ConstructDid: did,
			State:        state,
			Message:      message,
		},
	}
}

// NewErrorEvent wraps a fatal diagnostic in a block event.
func NewErrorEvent(diag *Diagnostic) BlockEvent {
	return BlockEvent{Uuid: uuid.New(), Type: BlockEventError, Diagnostic: diag}
}

// NewRunbookCompletedEvent signals run completion.
func NewRunbookCompletedEvent() BlockEvent {
	return BlockEvent{Uuid: uuid.New(), Type: BlockEventRunbookCompleted}
}
