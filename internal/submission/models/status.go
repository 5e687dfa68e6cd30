package models

// Status is the lifecycle status of a submission. Only the workflow state
// machine assigns it.
type Status string

const (
	StatusDraft                     Status = "draft"
	StatusPendingPBP                Status = "pending_pbp"
	StatusPendingProcurement        Status = "pending_procurement"
	StatusPendingOPW                Status = "pending_opw"
	StatusPendingContract           Status = "pending_contract"
	StatusPendingAP                 Status = "pending_ap"
	StatusCompletedOracle           Status = "completed_oracle"
	StatusCompletedPayroll          Status = "completed_payroll"
	StatusSDSIssuedAwaitingResponse Status = "sds_issued_awaiting_response"
	StatusRejected                  Status = "rejected"
)

// AllStatuses lists every status in pipeline order.
var AllStatuses = []Status{
	StatusDraft,
	StatusPendingPBP,
	StatusPendingProcurement,
	StatusPendingOPW,
	StatusPendingContract,
	StatusPendingAP,
	StatusCompletedOracle,
	StatusCompletedPayroll,
	StatusSDSIssuedAwaitingResponse,
	StatusRejected,
}

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPendingPBP, StatusPendingProcurement, StatusPendingOPW,
		StatusPendingContract, StatusPendingAP, StatusCompletedOracle, StatusCompletedPayroll,
		StatusSDSIssuedAwaitingResponse, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further stage transition is legal.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCompletedOracle, StatusCompletedPayroll:
		return true
	}
	return false
}

// IsCompleted reports whether the submission finished successfully.
func (s Status) IsCompleted() bool {
	return s == StatusCompletedOracle || s == StatusCompletedPayroll
}

func (s Status) String() string {
	return string(s)
}

// Stage marks the party currently responsible for moving the submission on.
type Stage string

const (
	StageRequester       Stage = "requester"
	StagePBP             Stage = "pbp"
	StageProcurement     Stage = "procurement"
	StageOPW             Stage = "opw"
	StageContractDrafter Stage = "contract_drafter"
	StageAPControl       Stage = "ap_control"
	StageWorker          Stage = "worker"
	StageNone            Stage = "none"
)

func (s Stage) IsValid() bool {
	switch s {
	case StageRequester, StagePBP, StageProcurement, StageOPW, StageContractDrafter,
		StageAPControl, StageWorker, StageNone:
		return true
	}
	return false
}

func (s Stage) String() string {
	return string(s)
}

// OutcomeRoute is the downstream system a completed supplier is set up in.
// The zero value means no routing decision has been made yet.
type OutcomeRoute string

const (
	RouteNone       OutcomeRoute = ""
	RouteOracleAP   OutcomeRoute = "oracle_ap"
	RoutePayrollESR OutcomeRoute = "payroll_esr"
)

func (r OutcomeRoute) IsValid() bool {
	switch r {
	case RouteNone, RouteOracleAP, RoutePayrollESR:
		return true
	}
	return false
}

func (r OutcomeRoute) String() string {
	return string(r)
}

// Role identifies a reviewer function. Each role owns exactly one stage.
type Role string

const (
	RolePBP             Role = "pbp"
	RoleProcurement     Role = "procurement"
	RoleOPW             Role = "opw"
	RoleContractDrafter Role = "contract_drafter"
	RoleAPControl       Role = "ap_control"
)

// ReviewRoles lists the reviewer roles in pipeline order.
var ReviewRoles = []Role{RolePBP, RoleProcurement, RoleOPW, RoleContractDrafter, RoleAPControl}

func (r Role) IsValid() bool {
	switch r {
	case RolePBP, RoleProcurement, RoleOPW, RoleContractDrafter, RoleAPControl:
		return true
	}
	return false
}

// Stage returns the stage this role is responsible for.
func (r Role) Stage() Stage {
	switch r {
	case RolePBP:
		return StagePBP
	case RoleProcurement:
		return StageProcurement
	case RoleOPW:
		return StageOPW
	case RoleContractDrafter:
		return StageContractDrafter
	case RoleAPControl:
		return StageAPControl
	}
	return StageNone
}

func (r Role) String() string {
	return string(r)
}

// Department is a notification recipient. Reviewer roles are departments;
// payroll is notified but never reviews.
type Department string

const (
	DepartmentPBP             Department = "pbp"
	DepartmentProcurement     Department = "procurement"
	DepartmentOPW             Department = "opw"
	DepartmentContractDrafter Department = "contract_drafter"
	DepartmentAPControl       Department = "ap_control"
	DepartmentPayroll         Department = "payroll"
)

// PendingStatus is the status a submission holds while waiting on role.
func (r Role) PendingStatus() Status {
	switch r {
	case RolePBP:
		return StatusPendingPBP
	case RoleProcurement:
		return StatusPendingProcurement
	case RoleOPW:
		return StatusPendingOPW
	case RoleContractDrafter:
		return StatusPendingContract
	case RoleAPControl:
		return StatusPendingAP
	}
	return ""
}
