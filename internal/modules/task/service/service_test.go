package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	taskDto "pooltap.app/earnhub/internal/modules/task/dto"
	taskRepo "pooltap.app/earnhub/internal/modules/task/repository"
	"pooltap.app/earnhub/internal/testutil"
	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/logger"
)

func newTestService(t *testing.T) *taskService {
	t.Helper()
	db := testutil.DB(t)
	return NewTaskService(taskRepo.NewTaskRepository(db), logger.Nop()).(*taskService)
}

func createReq(name string) taskDto.CreateTaskRequest {
	return taskDto.CreateTaskRequest{Name: name, Link: "https://t.me/pooltap", Points: 10}
}

func TestCreateTaskDefaults(t *testing.T) {
	svc := newTestService(t)
	req := createReq("Join Our Channel")
	req.Description = `<p>Join</p><script>alert(1)</script>`

	task, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Slug != "join-our-channel" {
		t.Fatalf("slug=%q", task.Slug)
	}
	if !task.RequiresEvidence {
		t.Fatalf("requires_evidence should default to true")
	}
	if strings.Contains(task.Description, "script") {
		t.Fatalf("description not sanitized: %q", task.Description)
	}
	if !task.Active {
		t.Fatalf("task without expiry should be active")
	}
}

func TestCreateTaskSlugCollision(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, createReq("Follow"))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.Create(ctx, createReq("follow"))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.Slug == second.Slug || second.Slug != "follow-2" {
		t.Fatalf("slugs %q %q", first.Slug, second.Slug)
	}
}

func TestCreateTaskRejectsNonPositivePoints(t *testing.T) {
	svc := newTestService(t)
	req := createReq("Zero")
	req.Points = 0
	if _, err := svc.Create(context.Background(), req); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestListActiveExcludesExpired(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	expired := createReq("Old")
	expired.ExpiryDate = &past
	if _, err := svc.Create(ctx, expired); err != nil {
		t.Fatalf("create expired: %v", err)
	}
	live, err := svc.Create(ctx, createReq("New"))
	if err != nil {
		t.Fatalf("create live: %v", err)
	}

	active, err := svc.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].ID != live.ID {
		t.Fatalf("unexpected active tasks %+v", active)
	}

	all, err := svc.List(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("List=%d,%v", len(all), err)
	}
}

func TestFindActive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	req := createReq("Gone")
	req.ExpiryDate = &past
	task, err := svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.FindActive(ctx, task.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expired task should be NotFound, got %v", err)
	}
}

func TestUpdateTask(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	task, err := svc.Create(ctx, createReq("Retweet"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	points := int64(25)
	off := false
	updated, err := svc.Update(ctx, task.ID, taskDto.UpdateTaskRequest{Points: &points, RequiresEvidence: &off})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Points != 25 || updated.RequiresEvidence {
		t.Fatalf("unexpected %+v", updated)
	}

	bad := int64(-1)
	if _, err := svc.Update(ctx, task.ID, taskDto.UpdateTaskRequest{Points: &bad}); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	task, err := svc.Create(ctx, createReq("Like"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, task.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
