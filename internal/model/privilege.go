package model

// Privilege codes checked by the HTTP layer.
const (
	PrivOrderCreate   = "order:create"
	PrivOrderView     = "order:view"
	PrivOrderDeliver  = "order:deliver"
	PrivOrderPay      = "order:pay"
	PrivPaymentCreate = "payment:create"
	PrivPaymentView   = "payment:view"
	PrivDebtAdjust    = "debt:adjust"
	PrivReportView    = "report:view"
	PrivCatalogManage = "catalog:manage"
	PrivEmployeeAdmin = "employee:manage"
	PrivPlatformView  = "platform:view"
)

// rolePrivileges is fixed per role; there is no per-user override.
var rolePrivileges = map[Role][]string{
	RoleAdmin: {
		PrivPlatformView, PrivReportView, PrivPaymentView, PrivOrderView,
	},
	RoleDistributor: {
		PrivOrderCreate, PrivOrderView, PrivOrderDeliver, PrivOrderPay,
		PrivPaymentCreate, PrivPaymentView, PrivDebtAdjust,
		PrivReportView, PrivCatalogManage, PrivEmployeeAdmin,
	},
	RoleEmployee: {
		PrivOrderCreate, PrivOrderView, PrivOrderDeliver, PrivOrderPay,
		PrivPaymentCreate, PrivPaymentView,
	},
}

// PrivilegesFor returns a copy of the privilege codes granted to role.
func PrivilegesFor(role Role) []string {
	codes := rolePrivileges[role]
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}
