package models

// Request models
type SignInRequest struct {
	AccessCode string `json:"accessCode"`
}

type CreateInvoiceRequest struct {
	CompanyName    string   `json:"companyName" validate:"required"`
	CompanyPhone   string   `json:"companyPhone"`
	CompanyAddress string   `json:"companyAddress" validate:"required"`
	CompanyGst     string   `json:"companyGst" validate:"required"`
	RatePerTon     *float64 `json:"ratePerTon" validate:"required,gte=0"`
	Trucks         *int64   `json:"trucks" validate:"required,gte=0"`
	Notes          string   `json:"notes"`
}

type ListInvoicesQuery struct {
	From  string `form:"from"`
	To    string `form:"to"`
	Page  string `form:"page"`
	Limit string `form:"limit"`
}

// Response models
type AuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type ListInvoicesResponse struct {
	Data  []Invoice `json:"data"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Total int64     `json:"total"`
}

type PeriodTotals struct {
	Invoices     int64   `json:"invoices"`
	TotalRevenue float64 `json:"totalRevenue"`
	TotalTrucks  int64   `json:"totalTrucks"`
}

type SummaryResponse struct {
	Invoices      int64     `json:"invoices"`
	TotalRevenue  float64   `json:"totalRevenue"`
	TotalTrucks   int64     `json:"totalTrucks"`
	AvgRatePerTon float64   `json:"avgRatePerTon"`
	ThisMonth     Aggregate `json:"thisMonth"`
	PrevMonth     Aggregate `json:"prevMonth"`
	ThisYear      Aggregate `json:"thisYear"`
}

type DailyResponse struct {
	Date     string       `json:"date"`
	Totals   PeriodTotals `json:"totals"`
	Invoices []Invoice    `json:"invoices"`
}

type HealthResponse struct {
	OK        bool   `json:"ok"`
	Timestamp string `json:"timestamp,omitempty"`
}

type ErrorResponse struct {
	Status  string         `json:"status"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
