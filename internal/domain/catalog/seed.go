package catalog

import (
	"context"
	"time"
)

// Slugs del catálogo built-in. Los admins pueden agregar más en runtime.
const (
	SlugViewNutrition       = "view_nutrition"
	SlugLogNutrition        = "log_nutrition"
	SlugSetNutritionTargets = "set_nutrition_targets"
	SlugViewWorkouts        = "view_workouts"
	SlugLogWorkouts         = "log_workouts"
	SlugAssignTrainingPlan  = "assign_training_plan"
	SlugViewWeight          = "view_weight"
	SlugViewPhotos          = "view_photos"
	SlugViewCheckins        = "view_checkins"
	SlugCommentCheckins     = "comment_checkins"
	SlugViewFasting         = "view_fasting"
	SlugSetFastingSchedule  = "set_fasting_schedule"
	SlugEditProfile         = "edit_profile"
)

func builtinDefinitions(now time.Time) []Definition {
	def := func(slug string, cat Category, t PermissionType, exclusive, verif bool) Definition {
		return Definition{
			Slug:                 slug,
			Category:             cat,
			Type:                 t,
			Exclusive:            exclusive,
			Enabled:              true,
			RequiresVerification: verif,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
	}

	return []Definition{
		def(SlugViewNutrition, CategoryNutrition, TypeRead, false, false),
		def(SlugLogNutrition, CategoryNutrition, TypeWrite, false, false),
		def(SlugSetNutritionTargets, CategoryNutrition, TypeWrite, true, false),
		def(SlugViewWorkouts, CategoryWorkouts, TypeRead, false, false),
		def(SlugLogWorkouts, CategoryWorkouts, TypeWrite, false, false),
		def(SlugAssignTrainingPlan, CategoryWorkouts, TypeWrite, true, true),
		def(SlugViewWeight, CategoryWeight, TypeRead, false, false),
		def(SlugViewPhotos, CategoryPhotos, TypeRead, false, false),
		def(SlugViewCheckins, CategoryCheckins, TypeRead, false, false),
		def(SlugCommentCheckins, CategoryCheckins, TypeWrite, false, false),
		def(SlugViewFasting, CategoryFasting, TypeRead, false, false),
		def(SlugSetFastingSchedule, CategoryFasting, TypeWrite, true, false),
		def(SlugEditProfile, CategoryProfile, TypeWrite, false, false),
	}
}

// Seed carga el catálogo built-in en el repo (idempotente: upsert por slug).
// Se usa al levantar con el adapter in-memory y en tests.
func Seed(ctx context.Context, repo Repository) error {
	for _, d := range builtinDefinitions(time.Now().UTC()) {
		if err := repo.Save(ctx, d); err != nil {
			return err
		}
	}
	return nil
}
