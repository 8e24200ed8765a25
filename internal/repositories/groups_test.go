package repositories

import (
	"context"
	"os"
	"testing"

	"kaderisasi-backend-go/internal/apperr"
	"kaderisasi-backend-go/internal/storage"
)

func TestBondingPercentage(t *testing.T) {
	cases := []struct {
		bonded, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 2, 50},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
	}
	for _, tc := range cases {
		if got := bondingPercentage(tc.bonded, tc.total); got != tc.want {
			t.Errorf("bondingPercentage(%d, %d) = %d, want %d", tc.bonded, tc.total, got, tc.want)
		}
	}
}

func TestVerboseGroupsAggregates(t *testing.T) {
	database := newTestDB(t)
	students := NewStudentRepo(database)
	groups := NewGroupRepo(database, storage.NewFileStore(t.TempDir()))
	adarna := groupIDByName(t, database, "adarna")

	mustCreateStudent(t, students, StudentInput{GroupID: adarna, Name: "Budi", HasBondedWith: true})
	mustCreateStudent(t, students, StudentInput{GroupID: adarna, Name: "Citra"})

	verbose, err := groups.Verbose(context.Background())
	if err != nil {
		t.Fatalf("verbose: %v", err)
	}

	byName := map[string]int{}
	for i, g := range verbose {
		byName[g.Name] = i
		if g.Percentage < 0 || g.Percentage > 100 {
			t.Errorf("group %s percentage %d out of range", g.Name, g.Percentage)
		}
		if g.StudentCount == 0 && g.Percentage != 0 {
			t.Errorf("group %s has no students but percentage %d", g.Name, g.Percentage)
		}
	}

	got := verbose[byName["adarna"]]
	if got.BondedCount != 1 || got.StudentCount != 2 || got.Percentage != 50 {
		t.Fatalf("adarna: bonded=%d students=%d pct=%d, want 1/2/50",
			got.BondedCount, got.StudentCount, got.Percentage)
	}

	// Every group appears, even the empty ones, at zero.
	empty := verbose[byName["huma"]]
	if empty.BondedCount != 0 || empty.StudentCount != 0 || empty.Percentage != 0 {
		t.Fatalf("empty group huma should be all zeros, got %+v", empty)
	}
}

func TestVerboseGroupsExcludeSoftDeletedFromDenominator(t *testing.T) {
	database := newTestDB(t)
	students := NewStudentRepo(database)
	groups := NewGroupRepo(database, storage.NewFileStore(t.TempDir()))
	adarna := groupIDByName(t, database, "adarna")

	mustCreateStudent(t, students, StudentInput{GroupID: adarna, Name: "Budi", HasBondedWith: true})
	mustCreateStudent(t, students, StudentInput{GroupID: adarna, Name: "Citra"})
	trashed := mustCreateStudent(t, students, StudentInput{GroupID: adarna, Name: "Dedi"})
	if _, err := students.SoftDelete(context.Background(), trashed); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	verbose, err := groups.Verbose(context.Background())
	if err != nil {
		t.Fatalf("verbose: %v", err)
	}
	for _, g := range verbose {
		if g.Name != "adarna" {
			continue
		}
		if g.StudentCount != 2 || g.BondedCount != 1 || g.Percentage != 50 {
			t.Fatalf("soft-deleted student should not count: got %d/%d/%d",
				g.BondedCount, g.StudentCount, g.Percentage)
		}
		return
	}
	t.Fatal("adarna missing from verbose listing")
}

func TestVerboseGroupsCarryImageFilename(t *testing.T) {
	database := newTestDB(t)
	groups := NewGroupRepo(database, storage.NewFileStore(t.TempDir()))
	adarna := groupIDByName(t, database, "adarna")

	if _, err := groups.UploadImage(context.Background(), adarna, "adarna.jpg", []byte("img")); err != nil {
		t.Fatalf("upload group image: %v", err)
	}

	verbose, err := groups.Verbose(context.Background())
	if err != nil {
		t.Fatalf("verbose: %v", err)
	}
	for _, g := range verbose {
		if g.Name == "adarna" {
			if g.ImageFilename == nil || *g.ImageFilename != "adarna.jpg" {
				t.Fatalf("expected adarna image filename, got %v", g.ImageFilename)
			}
		} else if g.ImageFilename != nil {
			t.Fatalf("group %s should have no image", g.Name)
		}
	}
}

func TestGroupUploadImageSupersedes(t *testing.T) {
	database := newTestDB(t)
	root := t.TempDir()
	store := storage.NewFileStore(root)
	groups := NewGroupRepo(database, store)
	adarna := groupIDByName(t, database, "adarna")

	ctx := context.Background()
	if _, err := groups.UploadImage(ctx, adarna, "a.jpg", []byte("first")); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	image, err := groups.UploadImage(ctx, adarna, "b.jpg", []byte("second"))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if image.Filename != "b.jpg" {
		t.Fatalf("expected pointer to b.jpg, got %s", image.Filename)
	}

	var count int
	if err := database.Get(&count, `SELECT COUNT(*) FROM group_images WHERE group_id = ?`, adarna); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single pointer row per group, got %d", count)
	}

	if _, err := os.Stat(store.Resolve("b.jpg")); err != nil {
		t.Fatalf("new blob missing: %v", err)
	}
	if _, err := os.Stat(store.Resolve("a.jpg")); !os.IsNotExist(err) {
		t.Fatal("superseded blob should be gone")
	}

	current, err := groups.GetImage(ctx, adarna)
	if err != nil {
		t.Fatalf("get image: %v", err)
	}
	if current.Filename != "b.jpg" {
		t.Fatalf("expected committed filename b.jpg, got %s", current.Filename)
	}
}

func TestGroupUploadRejectsUnknownGroup(t *testing.T) {
	database := newTestDB(t)
	groups := NewGroupRepo(database, storage.NewFileStore(t.TempDir()))

	_, err := groups.UploadImage(context.Background(), 9999, "x.jpg", []byte("img"))
	if !apperr.IsKind(err, apperr.KindUploadFailed) {
		t.Fatalf("expected upload failure for unknown group, got %v", err)
	}
}

func TestListGroups(t *testing.T) {
	database := newTestDB(t)
	groups := NewGroupRepo(database, storage.NewFileStore(t.TempDir()))

	all, err := groups.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 18 {
		t.Fatalf("expected the 18 seeded groups, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name > all[i].Name {
			t.Fatalf("groups not ordered by name: %s before %s", all[i-1].Name, all[i].Name)
		}
	}

	matched, err := groups.List(context.Background(), "phoe")
	if err != nil {
		t.Fatalf("list with search: %v", err)
	}
	if len(matched) != 1 || matched[0].Name != "phoenix" {
		t.Fatalf("expected only phoenix, got %d rows", len(matched))
	}
}

func TestCreateAndGetGroup(t *testing.T) {
	database := newTestDB(t)
	groups := NewGroupRepo(database, storage.NewFileStore(t.TempDir()))

	created, err := groups.Create(context.Background(), "quetzal")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fetched, err := groups.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Name != "quetzal" {
		t.Fatalf("expected quetzal, got %s", fetched.Name)
	}

	if _, err := groups.Get(context.Background(), 9999); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := groups.GetImage(context.Background(), created.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for missing group image, got %v", err)
	}
}
