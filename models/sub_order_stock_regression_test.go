package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ferrodesk/workshop_backend/config"
	"github.com/ferrodesk/workshop_backend/models"
	"github.com/ferrodesk/workshop_backend/utils"
	"github.com/shopspring/decimal"
)

// End-to-end check of the reservation bookkeeping against a real MySQL:
// creating, editing and cascading-deleting sub-orders must leave the ledger at
// exactly the balances the net-delta math predicts, and every posting must
// land in inventory_movements.
func TestSubOrderStockBookkeeping(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "workshop_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := config.ClearRedis(ctx); err != nil {
		t.Fatalf("ClearRedis: %v", err)
	}
	if err := models.MigrateTable(); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	steel, err := models.CreateMaterial(ctx, &models.NewMaterial{
		Name:   "Steel 3mm",
		Weight: decimal.NewFromInt(100),
		Unit:   "kg",
	})
	if err != nil {
		t.Fatalf("CreateMaterial(steel): %v", err)
	}
	copper, err := models.CreateMaterial(ctx, &models.NewMaterial{
		Name:   "Copper wire",
		Weight: decimal.NewFromInt(70),
		Unit:   "kg",
	})
	if err != nil {
		t.Fatalf("CreateMaterial(copper): %v", err)
	}

	client, err := models.SaveClient(ctx, 0, &models.NewClient{
		Name: "Steelworks LLC",
		Contacts: []*models.NewClientContact{
			{Type: models.ContactTypeEmail, Value: "office@steelworks.test"},
		},
	})
	if err != nil {
		t.Fatalf("SaveClient: %v", err)
	}

	order, err := models.CreateOrder(ctx, &models.NewOrder{
		Name:     "Gate",
		ClientId: client.ID,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	onHand := func(id int) decimal.Decimal {
		t.Helper()
		w, err := models.GetOnHand(ctx, id)
		if err != nil {
			t.Fatalf("GetOnHand(%d): %v", id, err)
		}
		return w
	}

	// Reserve 30kg of steel on a new sub-order.
	subOrder, warnings, err := models.SaveSubOrder(ctx, order.ID, 0, &models.NewSubOrder{
		Name: "Frame",
		Materials: []*models.NewSubOrderMaterial{
			{MaterialId: steel.ID, RequiredWeight: decimal.NewFromInt(30)},
		},
	})
	if err != nil {
		t.Fatalf("SaveSubOrder(create): %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if got := onHand(steel.ID); !got.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("after 30kg reservation: expected 70, got %s", got)
	}
	// The save response must carry the freshly assigned line ids so the
	// caller can diff-edit without a reload.
	if len(subOrder.Materials) != 1 || subOrder.Materials[0].ID == 0 {
		t.Fatalf("saved sub-order must return lines with real ids: %+v", subOrder.Materials)
	}

	// Edit the same line up to 50kg: the ledger must move by the 20kg
	// difference, not by 50.
	var existingLine models.SubOrderMaterial
	if err := db.WithContext(ctx).Where("sub_order_id = ?", subOrder.ID).Take(&existingLine).Error; err != nil {
		t.Fatalf("fetch usage line: %v", err)
	}
	_, warnings, err = models.SaveSubOrder(ctx, order.ID, subOrder.ID, &models.NewSubOrder{
		Name: "Frame",
		Materials: []*models.NewSubOrderMaterial{
			{HasId: models.HasId{ID: existingLine.ID}, MaterialId: steel.ID, RequiredWeight: decimal.NewFromInt(50)},
		},
	})
	if err != nil {
		t.Fatalf("SaveSubOrder(edit): %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings on edit within stock, got %v", warnings)
	}
	if got := onHand(steel.ID); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("after edit to 50kg: expected 50, got %s", got)
	}

	// Saving again with the unchanged list is a ledger no-op.
	_, _, err = models.SaveSubOrder(ctx, order.ID, subOrder.ID, &models.NewSubOrder{
		Name: "Frame",
		Materials: []*models.NewSubOrderMaterial{
			{HasId: models.HasId{ID: existingLine.ID}, MaterialId: steel.ID, RequiredWeight: decimal.NewFromInt(50)},
		},
	})
	if err != nil {
		t.Fatalf("SaveSubOrder(resave): %v", err)
	}
	if got := onHand(steel.ID); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unchanged resave must not move the ledger: expected 50, got %s", got)
	}

	// The edited line must be the same row, not a delete+insert.
	var lineCount int64
	if err := db.WithContext(ctx).Model(&models.SubOrderMaterial{}).
		Where("sub_order_id = ?", subOrder.ID).Count(&lineCount).Error; err != nil {
		t.Fatalf("count usage lines: %v", err)
	}
	if lineCount != 1 {
		t.Fatalf("expected 1 usage line after edit, got %d", lineCount)
	}

	// Over-reserving copper succeeds, drives the balance negative and warns.
	_, warnings, err = models.SaveSubOrder(ctx, order.ID, 0, &models.NewSubOrder{
		Name: "Wiring",
		Materials: []*models.NewSubOrderMaterial{
			{MaterialId: copper.ID, RequiredWeight: decimal.NewFromInt(120)},
		},
	})
	if err != nil {
		t.Fatalf("SaveSubOrder(over-reserve): %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 shortfall warning, got %v", warnings)
	}
	if warnings[0].MaterialId != copper.ID || !warnings[0].OnHandWeight.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("warning should carry the pre-save balance: %+v", warnings[0])
	}
	if got := onHand(copper.ID); !got.Equal(decimal.NewFromInt(-50)) {
		t.Fatalf("after over-reservation: expected -50, got %s", got)
	}

	// Every posting must be in the movement audit table.
	var movementCount int64
	if err := db.WithContext(ctx).Model(&models.InventoryMovement{}).
		Where("doc_type = ?", models.MovementDocTypeSubOrder).Count(&movementCount).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if movementCount != 3 {
		t.Fatalf("expected 3 sub-order movements (reserve, edit delta, over-reserve), got %d", movementCount)
	}

	// Manually adjusting a material that does not exist is a not-found, not a
	// silent no-op.
	if _, err := models.AdjustStock(ctx, 999999, decimal.NewFromInt(5), models.MovementDocTypeManual, 0); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("AdjustStock(unknown material): expected record-not-found, got %v", err)
	}

	// Re-pointing a line to a different material is new demand for that
	// material and must warn against its own balance.
	swapMaterial, err := models.CreateMaterial(ctx, &models.NewMaterial{
		Name:   "Aluminium sheet",
		Weight: decimal.NewFromInt(5),
		Unit:   "kg",
	})
	if err != nil {
		t.Fatalf("CreateMaterial(aluminium): %v", err)
	}
	_, warnings, err = models.SaveSubOrder(ctx, order.ID, subOrder.ID, &models.NewSubOrder{
		Name: "Frame",
		Materials: []*models.NewSubOrderMaterial{
			{HasId: models.HasId{ID: existingLine.ID}, MaterialId: swapMaterial.ID, RequiredWeight: decimal.NewFromInt(25)},
		},
	})
	if err != nil {
		t.Fatalf("SaveSubOrder(swap material): %v", err)
	}
	if len(warnings) != 1 || warnings[0].MaterialId != swapMaterial.ID {
		t.Fatalf("swapping onto a short material must warn for it: %v", warnings)
	}
	if got := onHand(steel.ID); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("swap must return the steel reservation: expected 100, got %s", got)
	}
	if got := onHand(swapMaterial.ID); !got.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("swap must reserve the new material: expected -20, got %s", got)
	}

	// Deleting the order cascades through its sub-orders and returns every
	// reservation, restoring the opening balances.
	if err := models.DeleteOrder(ctx, order.ID); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	if got := onHand(steel.ID); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("after cascade delete: expected steel back at 100, got %s", got)
	}
	if got := onHand(copper.ID); !got.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("after cascade delete: expected copper back at 70, got %s", got)
	}
	if got := onHand(swapMaterial.ID); !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("after cascade delete: expected aluminium back at 5, got %s", got)
	}

	var orphanCount int64
	if err := db.WithContext(ctx).Model(&models.SubOrderMaterial{}).Count(&orphanCount).Error; err != nil {
		t.Fatalf("count leftover lines: %v", err)
	}
	if orphanCount != 0 {
		t.Fatalf("cascade delete left %d usage lines behind", orphanCount)
	}
}

// Contact lists are diffed in place: edits update the existing row, removals
// delete exactly the dropped rows, blanks are ignored.
func TestClientContactDiffUpsert(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "workshop_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := config.ClearRedis(ctx); err != nil {
		t.Fatalf("ClearRedis: %v", err)
	}
	if err := models.MigrateTable(); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	db := config.GetDB()

	client, err := models.SaveClient(ctx, 0, &models.NewClient{
		Name: "Forge Bros",
		Contacts: []*models.NewClientContact{
			{Type: models.ContactTypeEmail, Value: "sales@forge.test"},
			{Type: models.ContactTypePhone, Value: "+380501234567"},
			{Type: models.ContactTypeEmail, Value: "   "}, // blank row from the form
		},
	})
	if err != nil {
		t.Fatalf("SaveClient(create): %v", err)
	}

	var contacts []*models.ClientContact
	if err := db.WithContext(ctx).Where("client_id = ?", client.ID).Order("id").Find(&contacts).Error; err != nil {
		t.Fatalf("fetch contacts: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected 2 contacts (blank dropped), got %d", len(contacts))
	}
	emailId := contacts[0].ID
	phoneId := contacts[1].ID

	// Edit the email in place and drop the phone.
	_, err = models.SaveClient(ctx, client.ID, &models.NewClient{
		Name: "Forge Bros",
		Contacts: []*models.NewClientContact{
			{HasId: models.HasId{ID: emailId}, Type: models.ContactTypeEmail, Value: "office@forge.test"},
		},
	})
	if err != nil {
		t.Fatalf("SaveClient(update): %v", err)
	}

	contacts = nil
	if err := db.WithContext(ctx).Where("client_id = ?", client.ID).Find(&contacts).Error; err != nil {
		t.Fatalf("refetch contacts: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("expected 1 contact after removal, got %d", len(contacts))
	}
	if contacts[0].ID != emailId || contacts[0].Value != "office@forge.test" {
		t.Fatalf("edit must keep the row id: got id=%d value=%q (want id=%d)", contacts[0].ID, contacts[0].Value, emailId)
	}

	var phoneCount int64
	if err := db.WithContext(ctx).Model(&models.ClientContact{}).Where("id = ?", phoneId).Count(&phoneCount).Error; err != nil {
		t.Fatalf("count dropped phone: %v", err)
	}
	if phoneCount != 0 {
		t.Fatalf("dropped contact row still present")
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("workshop-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("workshop-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=workshop_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
