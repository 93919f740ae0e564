// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

// Package fakesc is an in-process stand-in for the REST API of a freshly
// installed SecurityCenter appliance.  It implements the calls made during
// provisioning with enough validation to catch a client that sends the wrong
// shape or references an id the appliance never handed out.
package fakesc

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	AdminUsername = "admin"
	AdminPassword = "admin"
	AdminID       = "1"

	tokenHeader   = "X-SecurityCenter"
	sessionCookie = "TNS_SESSIONID"
	restPrefix    = "/rest/"

	firstToken = 1000
)

// Error codes returned in the envelope.  The values are arbitrary but stable.
const (
	CodeInvalidRequest = 3
	CodeNotFound       = 4
	CodeLogin          = 11
	CodeUnauthorized   = 12
	CodeLicense        = 146
)

// Call is a request received by the server.
type Call struct {
	Method   string
	Resource string
	Query    string
	Token    string
	Body     []byte
}

type account struct {
	id       string
	username string
	hash     []byte
	orgID    string
	roleID   int
}

type session struct {
	userID string
	cookie string
}

type failure struct {
	code int
	msg  string
}

// Server is the fake appliance.  Its zero value is not usable; call New.
type Server struct {
	mu sync.Mutex

	engine *gin.Engine

	accounts  map[string]*account // by username
	sessions  map[string]*session // by token
	nextToken int

	uploads  map[string][]byte
	license  string
	plugins  string
	failures map[string]failure
	calls    []Call

	nextID   map[string]int
	entities map[string]map[string]gin.H // kind -> id -> entity
}

// New creates a server with the factory administrator account.
func New() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		accounts:  map[string]*account{},
		sessions:  map[string]*session{},
		nextToken: firstToken,
		uploads:   map[string][]byte{},
		failures:  map[string]failure{},
		nextID:    map[string]int{},
		entities:  map[string]map[string]gin.H{},
	}

	s.addAccount(AdminID, AdminUsername, AdminPassword, "0", 1)
	s.nextID["user"] = 1

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.record, s.inject)

	rest := s.engine.Group(restPrefix)
	rest.POST("/token", s.login)

	authed := rest.Group("", s.authenticate)
	authed.DELETE("/token", s.logout)
	authed.GET("/currentUser", s.currentUser)
	authed.POST("/file/upload", s.upload)
	authed.POST("/config/license/register", s.registerLicense)
	authed.POST("/config/plugins/register", s.registerPlugins)
	authed.PATCH("/user/:id", s.patchUser)
	authed.POST("/zone", s.addZone)
	authed.POST("/scanner", s.addScanner)
	authed.POST("/organization", s.addOrganization)
	authed.POST("/repository", s.addRepository)
	authed.POST("/user", s.addUser)

	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// FailOn makes every subsequent request for method and resource (relative to
// /rest/, e.g. "organization" or "user/1") fail with the given error code and
// message.
func (s *Server) FailOn(method, resource string, code int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[method+" "+resource] = failure{code: code, msg: msg}
}

// Calls returns the requests received so far, in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Call(nil), s.calls...)
}

// Resources returns the "METHOD resource" form of every request received.
func (s *Server) Resources() []string {
	calls := s.Calls()

	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Method+" "+c.Resource)
	}

	return out
}

// CheckPassword reports whether password is the current password of username.
func (s *Server) CheckPassword(username, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[username]
	if !ok {
		return false
	}

	return bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
}

// Entity returns what was stored for the entity of the given kind ("zone",
// "scanner", "organization", "repository", "user") and id.
func (s *Server) Entity(kind, id string) (gin.H, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[kind][id]
	return e, ok
}

// License returns the content of the applied license, if any.
func (s *Server) License() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.license
}

// ActivationStatus returns the status of the last plugin registration.
func (s *Server) ActivationStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.plugins
}

// ActiveSessions returns the number of tokens that have not been deleted.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

func (s *Server) addAccount(id, username, password, orgID string, roleID int) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("hashing password: %v", err))
	}

	s.accounts[username] = &account{
		id:       id,
		username: username,
		hash:     hash,
		orgID:    orgID,
		roleID:   roleID,
	}
}

func (s *Server) store(kind string, e gin.H) string {
	s.nextID[kind]++
	id := strconv.Itoa(s.nextID[kind])

	if s.entities[kind] == nil {
		s.entities[kind] = map[string]gin.H{}
	}

	e["id"] = id
	s.entities[kind][id] = e

	return id
}

func (s *Server) exists(kind, id string) bool {
	_, ok := s.entities[kind][id]
	return ok
}

func resourceOf(c *gin.Context) string {
	return strings.TrimPrefix(c.Request.URL.Path, restPrefix)
}

func (s *Server) record(c *gin.Context) {
	var body []byte

	if c.Request.Body != nil && strings.HasPrefix(c.ContentType(), "application/json") {
		body, _ = io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Method:   c.Request.Method,
		Resource: resourceOf(c),
		Query:    c.Request.URL.RawQuery,
		Token:    c.GetHeader(tokenHeader),
		Body:     body,
	})
	s.mu.Unlock()

	c.Next()
}

func (s *Server) inject(c *gin.Context) {
	s.mu.Lock()
	f, ok := s.failures[c.Request.Method+" "+resourceOf(c)]
	s.mu.Unlock()

	if ok {
		fail(c, http.StatusForbidden, f.code, f.msg)
		return
	}

	c.Next()
}

func (s *Server) authenticate(c *gin.Context) {
	token := c.GetHeader(tokenHeader)

	s.mu.Lock()
	sess, ok := s.sessions[token]
	s.mu.Unlock()

	if token == "" || !ok {
		fail(c, http.StatusForbidden, CodeUnauthorized, "Invalid token")
		return
	}

	cookie, err := c.Cookie(sessionCookie)
	if err != nil || cookie != sess.cookie {
		fail(c, http.StatusForbidden, CodeUnauthorized, "Session cookie does not match token")
		return
	}

	c.Set("userID", sess.userID)
	c.Next()
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid login request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[req.Username]
	if !ok || bcrypt.CompareHashAndPassword(a.hash, []byte(req.Password)) != nil {
		fail(c, http.StatusForbidden, CodeLogin, "Invalid login credentials.")
		return
	}

	s.nextToken++
	token := s.nextToken
	cookie := newCookieValue()

	s.sessions[strconv.Itoa(token)] = &session{userID: a.id, cookie: cookie}

	c.Writer.Header().Add("Set-Cookie", sessionCookie+"=deleted; expires=Thu, 01-Jan-1970 00:00:01 GMT; path=/")
	c.Writer.Header().Add("Set-Cookie", sessionCookie+"="+cookie+"; path=/; secure; HttpOnly")

	ok200(c, gin.H{"token": token, "unassociatedCert": "false"})
}

func (s *Server) logout(c *gin.Context) {
	s.mu.Lock()
	delete(s.sessions, c.GetHeader(tokenHeader))
	s.mu.Unlock()

	c.Writer.Header().Add("Set-Cookie", sessionCookie+"=deleted; expires=Thu, 01-Jan-1970 00:00:01 GMT; path=/")

	ok200(c, gin.H{})
}

func (s *Server) currentUser(c *gin.Context) {
	userID := c.GetString("userID")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.id == userID {
			ok200(c, gin.H{"id": a.id, "username": a.username})
			return
		}
	}

	fail(c, http.StatusNotFound, CodeNotFound, "User not found")
}

func (s *Server) upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("Filedata")
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "No file uploaded")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Could not read upload")
		return
	}

	name := uuid.NewString()

	s.mu.Lock()
	s.uploads[name] = content
	s.mu.Unlock()

	ok200(c, gin.H{
		"filename":         name,
		"originalFilename": header.Filename,
	})
}

func (s *Server) registerLicense(c *gin.Context) {
	var req struct {
		Filename string `json:"filename"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.Filename == "" {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Filename is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	content, ok := s.uploads[req.Filename]
	if !ok || len(bytes.TrimSpace(content)) == 0 {
		fail(c, http.StatusBadRequest, CodeLicense, "Invalid license file")
		return
	}

	s.license = string(content)

	ok200(c, gin.H{"status": "Valid"})
}

func (s *Server) registerPlugins(c *gin.Context) {
	var req struct {
		ActivationCode string `json:"activationCode"`
		UpdateSite     string `json:"updateSite"`
		Type           string `json:"type"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.ActivationCode == "" || req.Type != "active" {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid plugin registration request")
		return
	}

	status := "Valid"
	if strings.Contains(strings.ToLower(req.ActivationCode), "invalid") {
		status = "Invalid"
	}

	s.mu.Lock()
	s.plugins = status
	s.mu.Unlock()

	ok200(c, gin.H{
		"type":       req.Type,
		"status":     status,
		"updateSite": req.UpdateSite,
	})
}

func (s *Server) patchUser(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Password is required")
		return
	}

	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.id != id {
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
		if err != nil {
			fail(c, http.StatusInternalServerError, CodeInvalidRequest, err.Error())
			return
		}
		a.hash = hash

		ok200(c, gin.H{"id": a.id, "username": a.username})
		return
	}

	fail(c, http.StatusNotFound, CodeNotFound, fmt.Sprintf("User #%s not found", id))
}

func (s *Server) addZone(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		IPList      string `json:"ipList"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.IPList == "" {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Scan zone name and IP list are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := gin.H{"name": req.Name, "description": req.Description, "ipList": req.IPList}
	s.store("zone", e)

	ok200(c, e)
}

func (s *Server) addScanner(c *gin.Context) {
	var req struct {
		Name     string      `json:"name"`
		IP       string      `json:"ip"`
		Port     interface{} `json:"port"`
		AuthType string      `json:"authType"`
		Zones    []struct {
			ID string `json:"id"`
		} `json:"zones"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.IP == "" {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Scanner name and IP are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, z := range req.Zones {
		if !s.exists("zone", z.ID) {
			fail(c, http.StatusBadRequest, CodeNotFound, fmt.Sprintf("Zone #%s not found", z.ID))
			return
		}
	}

	e := gin.H{"name": req.Name, "ip": req.IP, "port": req.Port, "authType": req.AuthType}
	s.store("scanner", e)

	ok200(c, e)
}

func (s *Server) addOrganization(c *gin.Context) {
	var req struct {
		Name          string `json:"name"`
		ZoneSelection string `json:"zoneSelection"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Organization name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := gin.H{"name": req.Name, "zoneSelection": req.ZoneSelection}
	s.store("organization", e)

	ok200(c, e)
}

func (s *Server) addRepository(c *gin.Context) {
	var req struct {
		Name          string `json:"name"`
		DataFormat    string `json:"dataFormat"`
		Type          string `json:"type"`
		IPRange       string `json:"ipRange"`
		Organizations []struct {
			ID string `json:"id"`
		} `json:"organizations"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Repository name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range req.Organizations {
		if !s.exists("organization", o.ID) {
			fail(c, http.StatusBadRequest, CodeNotFound, fmt.Sprintf("Organization #%s not found", o.ID))
			return
		}
	}

	e := gin.H{
		"name":       req.Name,
		"dataFormat": req.DataFormat,
		"type":       req.Type,
		"ipRange":    req.IPRange,
	}
	s.store("repository", e)

	ok200(c, e)
}

func (s *Server) addUser(c *gin.Context) {
	var req struct {
		Username           string `json:"username"`
		Password           string `json:"password"`
		AuthType           string `json:"authType"`
		OrgID              string `json:"orgID"`
		RoleID             int    `json:"roleID"`
		MustChangePassword string `json:"mustChangePassword"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Username and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists("organization", req.OrgID) {
		fail(c, http.StatusBadRequest, CodeNotFound, fmt.Sprintf("Organization #%s not found", req.OrgID))
		return
	}

	if _, taken := s.accounts[req.Username]; taken {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, fmt.Sprintf("Username %q is already in use", req.Username))
		return
	}

	e := gin.H{
		"username":           req.Username,
		"authType":           req.AuthType,
		"orgID":              req.OrgID,
		"roleID":             req.RoleID,
		"mustChangePassword": req.MustChangePassword,
	}
	id := s.store("user", e)
	s.addAccount(id, req.Username, req.Password, req.OrgID, req.RoleID)

	ok200(c, e)
}

func ok200(c *gin.Context, response gin.H) {
	c.JSON(http.StatusOK, gin.H{
		"type":       "regular",
		"response":   response,
		"error_code": 0,
		"error_msg":  "",
		"warnings":   []string{},
	})
}

func fail(c *gin.Context, status, code int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"type":       "regular",
		"response":   "",
		"error_code": code,
		"error_msg":  msg,
		"warnings":   []string{},
	})
}

func newCookieValue() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return hex.EncodeToString(b)
}
