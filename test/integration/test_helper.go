package integration

import (
	"fmt"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"coopledger/internal/events"
	"coopledger/internal/handlers/business"
	"coopledger/internal/models"
	"coopledger/internal/routes"
	"coopledger/internal/testutil"
	"coopledger/pkg/config"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// BaseURL points at the server under test. Set COOPLEDGER_BASE_URL to run
// against a deployed instance; otherwise an in-process server backed by a
// throwaway SQLite database is started.
var BaseURL string

// AdminID is the member ID sent with admin requests
var AdminID uint

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	if url := os.Getenv("COOPLEDGER_BASE_URL"); url != "" {
		BaseURL = url
		id, err := strconv.ParseUint(os.Getenv("COOPLEDGER_ADMIN_ID"), 10, 64)
		if err != nil {
			fmt.Fprintln(os.Stderr, "COOPLEDGER_ADMIN_ID is required with COOPLEDGER_BASE_URL")
			return 1
		}
		AdminID = uint(id)
		return m.Run()
	}

	dir, err := os.MkdirTemp("", "coopledger-integration")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer os.RemoveAll(dir)

	db, err := testutil.Open(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	gin.SetMode(gin.TestMode)
	log.SetLevel(log.WarnLevel)

	hub := events.NewHub(nil)
	defer hub.Close()

	ledger := business.NewLedger(db, config.DefaultLedgerSettings(), hub)
	reg, err := ledger.Members.Register(business.RegisterInput{Username: "integration-admin", Role: models.MemberRoleAdmin})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	AdminID = reg.Member.ID

	os.Setenv("RATE_LIMIT_BURST", "1000")
	srv := httptest.NewServer(routes.SetupRouter(ledger, hub))
	defer srv.Close()
	BaseURL = srv.URL

	return m.Run()
}
