package importexport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/photocards/pkg/photocards/models"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	models.AutoMigrate(db)
	return db
}

func setupTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r
}

const yamlDoc = `
groups:
  - name: TWICE
    members:
      - name: Nayeon
        cards:
          - status: wishlist
          - status: owned
            image_url: https://cdn.example.com/cards/1_nayeon.jpg
            description: Formula of Love
            is_favorite: true
            time: "2024-01-02T03:04:05Z"
      - name: Sana
  - name: IVE
    members:
      - name: Yujin
        cards:
          - status: sold
          - {}
`

func TestParseYAMLAndJSON(t *testing.T) {
	doc, err := Parse([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(doc.Groups) != 2 || len(doc.Groups[0].Members) != 2 {
		t.Fatalf("Expected 2 groups with TWICE holding 2 members, got %+v", doc.Groups)
	}

	doc, err = Parse([]byte("{\n\t\"groups\": [{\"name\": \"IVE\", \"members\": [{\"name\": \"Wonyoung\"}]}]\n}"))
	if err != nil {
		t.Fatalf("Parse JSON failed: %v", err)
	}
	if doc.Groups[0].Members[0].Name != "Wonyoung" {
		t.Errorf("Expected member Wonyoung, got %s", doc.Groups[0].Members[0].Name)
	}

	if _, err := Parse([]byte("groups: [")); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestImport(t *testing.T) {
	db := setupTestDB(t)
	doc, _ := Parse([]byte(yamlDoc))

	result, err := Import(context.Background(), db, doc)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Groups != 2 || result.Members != 3 {
		t.Errorf("Expected 2 groups and 3 members created, got %d and %d", result.Groups, result.Members)
	}
	if result.Imported != 3 || result.Skipped != 1 {
		t.Errorf("Expected 3 imported and 1 skipped, got %d and %d", result.Imported, result.Skipped)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "IVE/Yujin card 0") {
		t.Errorf("Expected error for the invalid status, got %v", result.Errors)
	}

	var owned models.CollectionItem
	if err := db.Where("status = ?", models.StatusOwned).First(&owned).Error; err != nil {
		t.Fatalf("Expected owned card: %v", err)
	}
	if owned.ImageURL == nil || owned.Description == nil || !owned.IsFavorite {
		t.Errorf("Expected image, description and favorite on owned card, got %+v", owned)
	}
	if !owned.CreatedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("Expected preserved timestamp, got %v", owned.CreatedAt)
	}

	var placeholders int64
	db.Model(&models.CollectionItem{}).Where("image_url IS NULL AND status = ?", models.StatusWishlist).Count(&placeholders)
	if placeholders != 2 {
		t.Errorf("Expected 2 wishlist placeholders, got %d", placeholders)
	}
}

func TestImportReusesGroupsAndMembers(t *testing.T) {
	db := setupTestDB(t)
	doc, _ := Parse([]byte(yamlDoc))

	Import(context.Background(), db, doc)
	result, err := Import(context.Background(), db, doc)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Groups != 0 || result.Members != 0 {
		t.Errorf("Expected no new groups or members, got %d and %d", result.Groups, result.Members)
	}

	var members int64
	db.Model(&models.Member{}).Count(&members)
	if members != 3 {
		t.Errorf("Expected 3 members, got %d", members)
	}
}

func TestImportRequiresNames(t *testing.T) {
	db := setupTestDB(t)
	doc := &Document{Groups: []GroupEntry{
		{Name: " "},
		{Name: "aespa", Members: []MemberEntry{{Name: ""}}},
	}}

	result, err := Import(context.Background(), db, doc)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(result.Errors) != 2 {
		t.Errorf("Expected 2 errors, got %v", result.Errors)
	}
	if result.Groups != 1 {
		t.Errorf("Expected aespa to be created, got %d groups", result.Groups)
	}
}

func TestExport(t *testing.T) {
	db := setupTestDB(t)
	doc, _ := Parse([]byte(yamlDoc))
	Import(context.Background(), db, doc)

	out, err := Export(context.Background(), db)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(out.Groups) != 2 || out.Groups[0].Name != "IVE" || out.Groups[1].Name != "TWICE" {
		t.Fatalf("Expected groups ordered by name, got %+v", out.Groups)
	}

	nayeon := out.Groups[1].Members[0]
	if nayeon.Name != "Nayeon" || len(nayeon.Cards) != 2 {
		t.Fatalf("Expected Nayeon with 2 cards, got %+v", nayeon)
	}
	if nayeon.Cards[0].Status != models.StatusOwned || nayeon.Cards[0].Time != "2024-01-02T03:04:05Z" {
		t.Errorf("Expected the older owned card first, got %+v", nayeon.Cards[0])
	}
	if len(out.Groups[1].Members[1].Cards) != 0 {
		t.Errorf("Expected Sana to have no cards")
	}
}

func TestExportRoundTripKeepsUnassignedCards(t *testing.T) {
	source := setupTestDB(t)
	doc, _ := Parse([]byte(yamlDoc))
	Import(context.Background(), source, doc)

	img := "https://cdn.example.com/cards/1_loose.jpg"
	loose := models.CollectionItem{Status: models.StatusOwned, ImageURL: &img}
	if err := source.Create(&loose).Error; err != nil {
		t.Fatalf("Failed to create card without member: %v", err)
	}

	out, err := Export(context.Background(), source)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(out.Unassigned) != 1 || out.Unassigned[0].ImageURL != img {
		t.Fatalf("Expected the card without member under unassigned, got %+v", out.Unassigned)
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		t.Fatalf("Failed to marshal export: %v", err)
	}
	reparsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Failed to parse export: %v", err)
	}

	target := setupTestDB(t)
	result, err := Import(context.Background(), target, reparsed)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Imported != 4 || result.Skipped != 0 {
		t.Errorf("Expected 4 imported and none skipped, got %d and %d", result.Imported, result.Skipped)
	}

	var sourceCount, targetCount int64
	source.Model(&models.CollectionItem{}).Count(&sourceCount)
	target.Model(&models.CollectionItem{}).Count(&targetCount)
	if sourceCount != targetCount {
		t.Errorf("Expected %d cards after re-import, got %d", sourceCount, targetCount)
	}

	var unassigned models.CollectionItem
	if err := target.Where("member_id IS NULL").First(&unassigned).Error; err != nil {
		t.Fatalf("Expected a card without member after re-import: %v", err)
	}
	if unassigned.Status != models.StatusOwned || unassigned.ImageURL == nil || *unassigned.ImageURL != img {
		t.Errorf("Expected owned card with its photo, got %+v", unassigned)
	}
}

func TestImportHandlerRefreshesAfterGroupsOnly(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandler(db)
	refreshed := 0
	h.AfterImport = func(ctx context.Context) error {
		refreshed++
		return nil
	}
	router := setupTestRouter(h)

	req, _ := http.NewRequest("POST", "/api/import", strings.NewReader("groups:\n  - name: ILLIT\n"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if refreshed != 1 {
		t.Errorf("Expected a refresh after a group-only import, got %d", refreshed)
	}
}

func TestImportHandler(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandler(db)
	refreshed := 0
	h.AfterImport = func(ctx context.Context) error {
		refreshed++
		return nil
	}
	router := setupTestRouter(h)

	req, _ := http.NewRequest("POST", "/api/import", strings.NewReader(yamlDoc))
	req.Header.Set("Content-Type", "application/yaml")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result Result
	json.Unmarshal(resp.Body.Bytes(), &result)
	if result.Imported != 3 {
		t.Errorf("Expected 3 imported, got %d", result.Imported)
	}
	if refreshed != 1 {
		t.Errorf("Expected one refresh after import, got %d", refreshed)
	}
}

func TestImportHandlerBadRequest(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(NewHandler(db))

	for _, body := range []string{"groups: [", "{}"} {
		req, _ := http.NewRequest("POST", "/api/import", bytes.NewBufferString(body))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %q, got %d", body, resp.Code)
		}
	}
}

func TestExportHandler(t *testing.T) {
	db := setupTestDB(t)
	doc, _ := Parse([]byte(yamlDoc))
	Import(context.Background(), db, doc)
	router := setupTestRouter(NewHandler(db))

	req, _ := http.NewRequest("GET", "/api/export?format=yaml&download=true", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	if cd := resp.Header().Get("Content-Disposition"); cd != "attachment; filename=photocards-export.yaml" {
		t.Errorf("Expected download header, got %q", cd)
	}

	var out Document
	if err := yaml.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("Expected YAML body: %v", err)
	}
	if len(out.Groups) != 2 {
		t.Errorf("Expected 2 groups, got %d", len(out.Groups))
	}

	req, _ = http.NewRequest("GET", "/api/export?format=xml", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}
