package repository

import (
	"maintech_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) ListCategories() ([]model.Category, error) {
	var cats []model.Category
	err := r.DB.Order("name asc").Find(&cats).Error
	return cats, err
}

func (r *CourseRepository) CreateCategory(cat *model.Category) error {
	return r.DB.Create(cat).Error
}

func (r *CourseRepository) CreateCourse(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) UpdateCourse(course *model.Course) error {
	return r.DB.Save(course).Error
}

func (r *CourseRepository) DeleteCourse(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var chapterIDs []uint
		if err := tx.Model(&model.Chapter{}).Where("course_id = ?", id).Pluck("id", &chapterIDs).Error; err == nil && len(chapterIDs) > 0 {
			if err := tx.Where("chapter_id IN ?", chapterIDs).Delete(&model.QuestionGroup{}).Error; err != nil {
				return err
			}
			if err := tx.Where("course_id = ?", id).Delete(&model.Chapter{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Course{}, id).Error
	})
}

func (r *CourseRepository) FindCourseByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindCourseBySlug(slug string) (*model.Course, error) {
	var course model.Course
	err := r.DB.Preload("Chapters", func(db *gorm.DB) *gorm.DB {
		return db.Order("chapters.position asc")
	}).Where("slug = ?", slug).First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) ListPublishedCourses() ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("is_published = ?", true).Order("created_at desc").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) ListCourses(page, limit int, categoryID uint) ([]model.Course, int64, error) {
	var total int64
	query := r.DB.Model(&model.Course{})
	if categoryID != 0 {
		query = query.Where("category_id = ?", categoryID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []model.Course
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&courses).Error
	return courses, total, err
}

// PublishScheduled 把到点的定时发布课程置为已发布，返回受影响的行数
func (r *CourseRepository) PublishScheduled(now time.Time) (int64, error) {
	res := r.DB.Model(&model.Course{}).
		Where("is_published = ? AND publish_at IS NOT NULL AND publish_at <= ?", false, now).
		Updates(map[string]interface{}{"is_published": true, "publish_at": nil})
	return res.RowsAffected, res.Error
}

func (r *CourseRepository) CreateChapter(chapter *model.Chapter) error {
	return r.DB.Create(chapter).Error
}

func (r *CourseRepository) UpdateChapter(chapter *model.Chapter) error {
	return r.DB.Save(chapter).Error
}

func (r *CourseRepository) DeleteChapter(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chapter_id = ?", id).Delete(&model.QuestionGroup{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Chapter{}, id).Error
	})
}

func (r *CourseRepository) FindChapterByID(id uint) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.First(&chapter, id).Error
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

func (r *CourseRepository) ListChapters(courseID uint) ([]model.Chapter, error) {
	var chapters []model.Chapter
	err := r.DB.Where("course_id = ?", courseID).Order("position asc, created_at asc").Find(&chapters).Error
	return chapters, err
}

func (r *CourseRepository) CountChapters(courseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Chapter{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}
