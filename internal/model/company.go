// internal/model/company.go
package model

// CompanyProfile is the slice of tenant data the engine needs: display
// naming for rendered messages and the API key for tenant authorization.
type CompanyProfile struct {
    ID         string `db:"id" json:"id"`
    Name       string `db:"name" json:"name"`
    SenderName string `db:"sender_name" json:"sender_name"`
    APIKey     string `db:"api_key" json:"-"`
}
