// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package provisioning

// Zone is a scan zone as returned by the appliance.
type Zone struct {
	ID   string `mapstructure:"id" yaml:"id"`
	Name string `mapstructure:"name" yaml:"name"`
}

// Scanner is a Nessus scanner as returned by the appliance.
type Scanner struct {
	ID   string `mapstructure:"id" yaml:"id"`
	Name string `mapstructure:"name" yaml:"name"`
}

// Organization is an organization as returned by the appliance.
type Organization struct {
	ID   string `mapstructure:"id" yaml:"id"`
	Name string `mapstructure:"name" yaml:"name"`
}

// Repository is a repository as returned by the appliance.
type Repository struct {
	ID   string `mapstructure:"id" yaml:"id"`
	Name string `mapstructure:"name" yaml:"name"`
}

// User is an appliance account.
type User struct {
	ID       string `mapstructure:"id" yaml:"id"`
	Username string `mapstructure:"username" yaml:"username"`
}

// Activation is the outcome of registering a Nessus activation code.  A
// rejected code is reported with Valid false and Field naming the member of
// the response that carried the "Invalid" marker.
type Activation struct {
	Valid bool   `yaml:"valid"`
	Field string `yaml:"field,omitempty"`
}

// ScannerSpec describes the Nessus scanner to bind to a scan zone.  An empty
// Port selects DefaultNessusPort.
type ScannerSpec struct {
	Name     string
	IP       string
	Username string
	Password string
	Port     string
}

// request payloads

type licensePayload struct {
	Filename string `json:"filename"`
}

type activationPayload struct {
	ActivationCode string `json:"activationCode"`
	UpdateSite     string `json:"updateSite"`
	Type           string `json:"type"`
}

type passwordPayload struct {
	Password string `json:"password"`
}

type zonePayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IPList      string `json:"ipList"`
}

type zoneRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type scannerPayload struct {
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	IP            string      `json:"ip"`
	Port          interface{} `json:"port"`
	UseProxy      string      `json:"useProxy"`
	Enabled       string      `json:"enabled"`
	VerifyHost    string      `json:"verifyHost"`
	ManagePlugins string      `json:"managePlugins"`
	AuthType      string      `json:"authType"`
	Username      string      `json:"username"`
	Password      string      `json:"password"`
	Admin         string      `json:"admin"`
	Zones         []zoneRef   `json:"zones"`
}

type organizationPayload struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	ZoneSelection string `json:"zoneSelection"`
}

type organizationRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type repositoryPayload struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	DataFormat    string            `json:"dataFormat"`
	Type          string            `json:"type"`
	TrendingDays  string            `json:"trendingDays"`
	TrendWithRaw  string            `json:"trendWithRaw"`
	IPRange       string            `json:"ipRange"`
	Organizations []organizationRef `json:"organizations"`
}

type userPayload struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	Firstname          string `json:"firstname"`
	Lastname           string `json:"lastname"`
	Username           string `json:"username"`
	Password           string `json:"password"`
	Title              string `json:"title"`
	Address            string `json:"address"`
	City               string `json:"city"`
	State              string `json:"state"`
	Country            string `json:"country"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	Fax                string `json:"fax"`
	AuthType           string `json:"authType"`
	OrgID              string `json:"orgID"`
	RoleID             int    `json:"roleID"`
	MustChangePassword string `json:"mustChangePassword"`
}
