package dto

import "time"

// Campaigns

type CreateCampaignRequest struct {
	Name        string            `json:"name" validate:"required,max=200"`
	Type        string            `json:"type" validate:"required"`
	Segment     string            `json:"segment" validate:"required"`
	TemplateID  string            `json:"template_id" validate:"required,uuid"`
	Variables   map[string]string `json:"variables,omitempty"`
	ScheduledAt *time.Time        `json:"scheduled_at,omitempty"`
}

// Contacts

type UpsertContactRequest struct {
	Phone   string   `json:"phone" validate:"required,e164"`
	Name    string   `json:"name,omitempty" validate:"max=200"`
	Email   string   `json:"email,omitempty" validate:"omitempty,email"`
	Segment string   `json:"segment,omitempty"`
	Tags    []string `json:"tags,omitempty" validate:"max=20,dive,max=50"`
	OptedIn bool     `json:"opted_in"`
}

// Templates

type CreateTemplateRequest struct {
	Name      string   `json:"name" validate:"required,max=512"`
	Content   string   `json:"content" validate:"required,max=1024"`
	Variables []string `json:"variables,omitempty"`
	Category  string   `json:"category" validate:"omitempty,oneof=MARKETING UTILITY AUTHENTICATION"`
	Language  string   `json:"language" validate:"omitempty,bcp47_language_tag"`
}

type ReviewTemplateRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=APPROVED REJECTED"`
}

// Chatbot

type ChatbotMessageRequest struct {
	ContactID string `json:"contact_id" validate:"required,uuid"`
	Message   string `json:"message" validate:"required,max=4096"`
}
