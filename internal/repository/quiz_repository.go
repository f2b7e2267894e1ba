package repository

import (
	"maintech_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

// ListGroupsWithQuestions 取出章节全部题组，含题目与选项
func (r *QuizRepository) ListGroupsWithQuestions(chapterID uint) ([]model.QuestionGroup, error) {
	var groups []model.QuestionGroup
	err := r.DB.Preload("Questions.Answers").
		Where("chapter_id = ?", chapterID).
		Order("created_at asc").
		Find(&groups).Error
	return groups, err
}

func (r *QuizRepository) CountQuestions(chapterID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).
		Joins("JOIN question_groups g ON g.id = questions.group_id").
		Where("g.chapter_id = ? AND g.deleted_at IS NULL", chapterID).
		Count(&count).Error
	return count, err
}

// FindQuestionsByIDs 按给定 id 集合取题（含选项），顺序由调用方恢复
func (r *QuizRepository) FindQuestionsByIDs(ids []uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Preload("Answers").Where("id IN ?", ids).Find(&questions).Error
	return questions, err
}

func (r *QuizRepository) CreateGroup(group *model.QuestionGroup) error {
	return r.DB.Create(group).Error
}

func (r *QuizRepository) DeleteGroup(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var questionIDs []uint
		if err := tx.Model(&model.Question{}).Where("group_id = ?", id).Pluck("id", &questionIDs).Error; err == nil && len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&model.Answer{}).Error; err != nil {
				return err
			}
			if err := tx.Where("group_id = ?", id).Delete(&model.Question{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.QuestionGroup{}, id).Error
	})
}

func (r *QuizRepository) CreateSession(session *model.QuizSession) error {
	return r.DB.Create(session).Error
}

func (r *QuizRepository) FindSessionByID(id string) (*model.QuizSession, error) {
	var s model.QuizSession
	err := r.DB.First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *QuizRepository) FindActiveSession(userID, chapterID uint) (*model.QuizSession, error) {
	var s model.QuizSession
	err := r.DB.Where("user_id = ? AND chapter_id = ? AND status = ?",
		userID, chapterID, model.QuizSessionInProgress).
		Order("started_at desc").First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *QuizRepository) UpdateSession(session *model.QuizSession) error {
	return r.DB.Save(session).Error
}
