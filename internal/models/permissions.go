package models

import (
	"database/sql/driver"
	"encoding/json"
)

// Capability names one permission flag of an attendance user.
type Capability string

const (
	CapChat                Capability = "can_chat"
	CapViewOrders          Capability = "can_view_orders"
	CapPrintOrders         Capability = "can_print_orders"
	CapUpdateStatus        Capability = "can_update_status"
	CapCreateManualOrders  Capability = "can_create_manual_orders"
	CapViewCashRegister    Capability = "can_view_cash_register"
	CapViewSales           Capability = "can_view_sales"
	CapViewReports         Capability = "can_view_reports"
	CapViewCashReport      Capability = "can_view_cash_report"
	CapViewSalesReport     Capability = "can_view_sales_report"
	CapManageProducts      Capability = "can_manage_products"
	CapViewOperators       Capability = "can_view_operators"
	CapViewAttendance      Capability = "can_view_attendance"
	CapManageSettings      Capability = "can_manage_settings"
	CapUseScale            Capability = "can_use_scale"
	CapDiscount            Capability = "can_discount"
	CapCancel              Capability = "can_cancel"
	CapViewExpectedBalance Capability = "can_view_expected_balance"
	CapEditOrders          Capability = "can_edit_orders"
	CapDeleteOrders        Capability = "can_delete_orders"
	CapCancelOrders        Capability = "can_cancel_orders"
	CapManageCashEntries   Capability = "can_manage_cash_entries"
	CapEditSales           Capability = "can_edit_sales"
	CapDeleteSales         Capability = "can_delete_sales"
	CapEditCashEntries     Capability = "can_edit_cash_entries"
	CapDeleteCashEntries   Capability = "can_delete_cash_entries"
	CapCancelCashEntries   Capability = "can_cancel_cash_entries"
)

// Capabilities lists every capability, in display order.
var Capabilities = []Capability{
	CapChat,
	CapViewOrders,
	CapPrintOrders,
	CapUpdateStatus,
	CapCreateManualOrders,
	CapViewCashRegister,
	CapViewSales,
	CapViewReports,
	CapViewCashReport,
	CapViewSalesReport,
	CapManageProducts,
	CapViewOperators,
	CapViewAttendance,
	CapManageSettings,
	CapUseScale,
	CapDiscount,
	CapCancel,
	CapViewExpectedBalance,
	CapEditOrders,
	CapDeleteOrders,
	CapCancelOrders,
	CapManageCashEntries,
	CapEditSales,
	CapDeleteSales,
	CapEditCashEntries,
	CapDeleteCashEntries,
	CapCancelCashEntries,
}

// Permissions is the closed set of capability flags of an attendance user.
// It is stored as a JSONB column.
type Permissions struct {
	CanChat                bool `json:"can_chat"`
	CanViewOrders          bool `json:"can_view_orders"`
	CanPrintOrders         bool `json:"can_print_orders"`
	CanUpdateStatus        bool `json:"can_update_status"`
	CanCreateManualOrders  bool `json:"can_create_manual_orders"`
	CanViewCashRegister    bool `json:"can_view_cash_register"`
	CanViewSales           bool `json:"can_view_sales"`
	CanViewReports         bool `json:"can_view_reports"`
	CanViewCashReport      bool `json:"can_view_cash_report"`
	CanViewSalesReport     bool `json:"can_view_sales_report"`
	CanManageProducts      bool `json:"can_manage_products"`
	CanViewOperators       bool `json:"can_view_operators"`
	CanViewAttendance      bool `json:"can_view_attendance"`
	CanManageSettings      bool `json:"can_manage_settings"`
	CanUseScale            bool `json:"can_use_scale"`
	CanDiscount            bool `json:"can_discount"`
	CanCancel              bool `json:"can_cancel"`
	CanViewExpectedBalance bool `json:"can_view_expected_balance"`
	CanEditOrders          bool `json:"can_edit_orders"`
	CanDeleteOrders        bool `json:"can_delete_orders"`
	CanCancelOrders        bool `json:"can_cancel_orders"`
	CanManageCashEntries   bool `json:"can_manage_cash_entries"`
	CanEditSales           bool `json:"can_edit_sales"`
	CanDeleteSales         bool `json:"can_delete_sales"`
	CanEditCashEntries     bool `json:"can_edit_cash_entries"`
	CanDeleteCashEntries   bool `json:"can_delete_cash_entries"`
	CanCancelCashEntries   bool `json:"can_cancel_cash_entries"`
}

// Allows reports whether the capability is granted. Unknown capabilities
// are never granted.
func (p Permissions) Allows(c Capability) bool {
	switch c {
	case CapChat:
		return p.CanChat
	case CapViewOrders:
		return p.CanViewOrders
	case CapPrintOrders:
		return p.CanPrintOrders
	case CapUpdateStatus:
		return p.CanUpdateStatus
	case CapCreateManualOrders:
		return p.CanCreateManualOrders
	case CapViewCashRegister:
		return p.CanViewCashRegister
	case CapViewSales:
		return p.CanViewSales
	case CapViewReports:
		return p.CanViewReports
	case CapViewCashReport:
		return p.CanViewCashReport
	case CapViewSalesReport:
		return p.CanViewSalesReport
	case CapManageProducts:
		return p.CanManageProducts
	case CapViewOperators:
		return p.CanViewOperators
	case CapViewAttendance:
		return p.CanViewAttendance
	case CapManageSettings:
		return p.CanManageSettings
	case CapUseScale:
		return p.CanUseScale
	case CapDiscount:
		return p.CanDiscount
	case CapCancel:
		return p.CanCancel
	case CapViewExpectedBalance:
		return p.CanViewExpectedBalance
	case CapEditOrders:
		return p.CanEditOrders
	case CapDeleteOrders:
		return p.CanDeleteOrders
	case CapCancelOrders:
		return p.CanCancelOrders
	case CapManageCashEntries:
		return p.CanManageCashEntries
	case CapEditSales:
		return p.CanEditSales
	case CapDeleteSales:
		return p.CanDeleteSales
	case CapEditCashEntries:
		return p.CanEditCashEntries
	case CapDeleteCashEntries:
		return p.CanDeleteCashEntries
	case CapCancelCashEntries:
		return p.CanCancelCashEntries
	}
	return false
}

// Set grants or revokes a capability and reports whether it was known.
func (p *Permissions) Set(c Capability, allowed bool) bool {
	switch c {
	case CapChat:
		p.CanChat = allowed
	case CapViewOrders:
		p.CanViewOrders = allowed
	case CapPrintOrders:
		p.CanPrintOrders = allowed
	case CapUpdateStatus:
		p.CanUpdateStatus = allowed
	case CapCreateManualOrders:
		p.CanCreateManualOrders = allowed
	case CapViewCashRegister:
		p.CanViewCashRegister = allowed
	case CapViewSales:
		p.CanViewSales = allowed
	case CapViewReports:
		p.CanViewReports = allowed
	case CapViewCashReport:
		p.CanViewCashReport = allowed
	case CapViewSalesReport:
		p.CanViewSalesReport = allowed
	case CapManageProducts:
		p.CanManageProducts = allowed
	case CapViewOperators:
		p.CanViewOperators = allowed
	case CapViewAttendance:
		p.CanViewAttendance = allowed
	case CapManageSettings:
		p.CanManageSettings = allowed
	case CapUseScale:
		p.CanUseScale = allowed
	case CapDiscount:
		p.CanDiscount = allowed
	case CapCancel:
		p.CanCancel = allowed
	case CapViewExpectedBalance:
		p.CanViewExpectedBalance = allowed
	case CapEditOrders:
		p.CanEditOrders = allowed
	case CapDeleteOrders:
		p.CanDeleteOrders = allowed
	case CapCancelOrders:
		p.CanCancelOrders = allowed
	case CapManageCashEntries:
		p.CanManageCashEntries = allowed
	case CapEditSales:
		p.CanEditSales = allowed
	case CapDeleteSales:
		p.CanDeleteSales = allowed
	case CapEditCashEntries:
		p.CanEditCashEntries = allowed
	case CapDeleteCashEntries:
		p.CanDeleteCashEntries = allowed
	case CapCancelCashEntries:
		p.CanCancelCashEntries = allowed
	default:
		return false
	}
	return true
}

func (p Permissions) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *Permissions) Scan(value interface{}) error {
	if value == nil {
		*p = Permissions{}
		return nil
	}
	return scanJSON(value, p)
}

// DefaultPermissions returns the permissions a new user of the role starts with.
func DefaultPermissions(role Role) Permissions {
	var p Permissions
	if role == RoleAdmin {
		for _, c := range Capabilities {
			p.Set(c, true)
		}
		return p
	}
	for _, c := range []Capability{CapChat, CapViewOrders, CapPrintOrders, CapUpdateStatus, CapCreateManualOrders, CapViewCashRegister, CapViewSales, CapUseScale} {
		p.Set(c, true)
	}
	return p
}

// Granted lists the capabilities p allows, in display order.
func (p Permissions) Granted() []Capability {
	granted := make([]Capability, 0, len(Capabilities))
	for _, c := range Capabilities {
		if p.Allows(c) {
			granted = append(granted, c)
		}
	}
	return granted
}
