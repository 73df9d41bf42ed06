package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wa-marketing/backend/internal/http/dto"
	"github.com/wa-marketing/backend/internal/models"
)

// MetaHandler serves the fixed vocabularies the dashboard builds its forms from.
type MetaHandler struct{}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

type MetaOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var segmentOptions = []MetaOption{
	{ID: models.SegmentActive, Label: "Clients actifs"},
	{ID: models.SegmentInactive, Label: "Clients inactifs"},
	{ID: models.SegmentNew, Label: "Nouveaux clients"},
	{ID: models.SegmentPremium, Label: "Clients premium"},
	{ID: models.SegmentVIP, Label: "Clients VIP"},
}

var campaignTypeOptions = []MetaOption{
	{ID: models.CampaignTypeBroadcast, Label: "Diffusion"},
	{ID: models.CampaignTypeReactivation, Label: "Réactivation"},
	{ID: models.CampaignTypePromotional, Label: "Promotion"},
	{ID: models.CampaignTypeTransactional, Label: "Transactionnel"},
}

var templateCategoryOptions = []MetaOption{
	{ID: models.TemplateCategoryMarketing, Label: "Marketing"},
	{ID: models.TemplateCategoryUtility, Label: "Utilitaire"},
	{ID: models.TemplateCategoryAuthentication, Label: "Authentification"},
}

// bindingOptions are the contact fields a template variable can bind to.
var bindingOptions = []MetaOption{
	{ID: "nom", Label: "Nom complet"},
	{ID: "prenom", Label: "Prénom"},
	{ID: "email", Label: "Email"},
	{ID: "phone", Label: "Téléphone"},
}

func (h *MetaHandler) GetSegments(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: segmentOptions})
}

func (h *MetaHandler) GetCampaignTypes(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: campaignTypeOptions})
}

func (h *MetaHandler) GetTemplateOptions(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"categories": templateCategoryOptions,
		"bindings":   bindingOptions,
	}})
}
