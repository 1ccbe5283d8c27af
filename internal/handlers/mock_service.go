package handlers

import (
	"context"
	"net/http"
	"time"

	"printwatch"
	"printwatch/internal/gcode"
	"printwatch/internal/printer"
	"printwatch/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockControl struct {
	execErr      error
	setTempErr   error
	position     printer.Position
	positionErr  error
	reconnectErr error

	lastCommand  string
	lastTemp     service.TemperatureParams
	execCalls    int
	setTempCalls int
	reconnects   int
}

func (m *mockControl) Execute(ctx context.Context, command string) error {
	m.execCalls++
	m.lastCommand = command
	return m.execErr
}
func (m *mockControl) SetTemperature(ctx context.Context, p service.TemperatureParams) error {
	m.setTempCalls++
	m.lastTemp = p
	return m.setTempErr
}
func (m *mockControl) Position(ctx context.Context) (printer.Position, error) {
	return m.position, m.positionErr
}
func (m *mockControl) Reconnect(ctx context.Context) error {
	m.reconnects++
	return m.reconnectErr
}

type mockMonitoring struct {
	report service.StatusReport
	err    error
}

func (m *mockMonitoring) Status(ctx context.Context) (service.StatusReport, error) {
	return m.report, m.err
}

type mockFiles struct {
	listResp   []printer.FileEntry
	listErr    error
	uploadMeta gcode.Metadata
	uploadErr  error
	startErr   error
	deleteErr  error

	lastUpload   service.UploadParams
	lastStarted  string
	lastDeleted  string
	uploadCalls  int
	startCalls   int
	deleteCalls  int
}

func (m *mockFiles) List(ctx context.Context) ([]printer.FileEntry, error) {
	return m.listResp, m.listErr
}
func (m *mockFiles) Upload(ctx context.Context, p service.UploadParams) (gcode.Metadata, error) {
	m.uploadCalls++
	m.lastUpload = p
	return m.uploadMeta, m.uploadErr
}
func (m *mockFiles) StartPrint(ctx context.Context, filename string) error {
	m.startCalls++
	m.lastStarted = filename
	return m.startErr
}
func (m *mockFiles) Delete(ctx context.Context, filename string) error {
	m.deleteCalls++
	m.lastDeleted = filename
	return m.deleteErr
}

type mockEventLog struct {
	resp     []printwatch.PrintEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]printwatch.PrintEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockNotifier struct {
	testErr    error
	testCalls  int
	lastStatus printer.State
}

func (m *mockNotifier) HandleState(st printer.State) {
	m.lastStatus = st
}
func (m *mockNotifier) Test(ctx context.Context) error {
	m.testCalls++
	return m.testErr
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
