package model

// RawRecord mirrors one ticket object from the NSP API response. The API
// flattens foreign keys into dotted column names ("AgentGroup.Id"), which the
// JSON tags carry verbatim. Every field is optional; pointers distinguish an
// absent value from a zero one. Transport-only fields the API may include
// (Id, EntityType, Priority.Id, BaseAgent.Id, BaseEndUser.Id) are not mapped
// and are dropped on decode.
type RawRecord struct {
	ReferenceNo        *int64  `json:"ReferenceNo"`
	BaseEntityStatus   *string `json:"BaseEntityStatus"`
	BaseEntityStatusID *int64  `json:"BaseEntityStatus.Id"`
	AgentGroup         *string `json:"AgentGroup"`
	AgentGroupID       *int64  `json:"AgentGroup.Id"`
	CreatedDate        *string `json:"CreatedDate"`
	CloseDateTime      *string `json:"CloseDateTime"`
	UpdatedDate        *string `json:"UpdatedDate"`
	Priority           *string `json:"Priority"`
	BaseAgent          *string `json:"BaseAgent"`
	BaseEndUser        *string `json:"BaseEndUser"`
	BaseHeader         *string `json:"BaseHeader"`
	StartDate          *string `json:"u_Opstart"`
	EndDate            *string `json:"u_Afslutning"`
	TaskType           *string `json:"u_Opgavetype"`
	TaskTypeID         *int64  `json:"u_Opgavetype.Id"`
	TaskArea           *string `json:"u_Omrder"`
	TaskAreaID         *int64  `json:"u_Omrder.Id"`
	RejectionReason    *string `json:"u_Afvisningsrsag"`
	RejectionReasonID  *int64  `json:"u_Afvisningsrsag.Id"`
}
