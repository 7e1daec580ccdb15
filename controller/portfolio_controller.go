package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xeonx/timeago"

	"github.com/lancerdesk/crm/model"
)

type APIPortfolioProject struct {
	ID           uint   `json:"id" xml:"id"`
	Title        string `json:"title" xml:"title"`
	Description  string `json:"description" xml:"description"`
	StartDate    string `json:"start_date" xml:"start_date"`
	EndDate      string `json:"end_date" xml:"end_date"`
	CompletedAgo string `json:"completed_ago,omitempty" xml:"completed_ago,omitempty"`
	TotalHours   string `json:"total_hours" xml:"total_hours"`
	TotalBilled  string `json:"total_billed" xml:"total_billed"`
	IsPublic     bool   `json:"is_public" xml:"is_public"`
}

type APIPortfolio struct {
	XMLName        struct{}              `json:"-" xml:"portfolio"`
	Username       string                `json:"username" xml:"username"`
	Name           string                `json:"name" xml:"name"`
	Bio            string                `json:"bio" xml:"bio"`
	ProfileImage   string                `json:"profile_image" xml:"profile_image"`
	Specialization string                `json:"specialization" xml:"specialization"`
	Email          string                `json:"email" xml:"email"`
	Projects       []APIPortfolioProject `json:"projects" xml:"project"`
}

func toAPIPortfolioProject(p *model.PortfolioProject) APIPortfolioProject {
	out := APIPortfolioProject{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		TotalHours:  p.TotalHours.String(),
		TotalBilled: p.TotalBilled.String(),
		IsPublic:    p.IsPublic,
	}
	if end, err := model.ParseDate(p.EndDate); err == nil {
		out.CompletedAgo = timeago.English.Format(end)
	}
	return out
}

// portfolioShow is public. Logged-in owners may view their own portfolio even
// while it is private; everyone else sees a 404 in that case.
func (ctrl *controller) portfolioShow(c echo.Context) error {
	var viewerID uint
	if sess, err := loadSession(c); err == nil {
		if uid, ok := sess.Values["uid"].(uint); ok {
			viewerID = uid
		}
	}

	pf, err := ctrl.model.LoadPortfolio(c.Param("username"), viewerID)
	if err != nil {
		return err
	}
	out := APIPortfolio{
		Username:       pf.Username,
		Name:           pf.Name,
		Bio:            pf.Bio,
		ProfileImage:   pf.ProfileImage,
		Specialization: pf.Specialization,
		Email:          pf.Email,
		Projects:       make([]APIPortfolioProject, len(pf.Projects)),
	}
	for i := range pf.Projects {
		out.Projects[i] = toAPIPortfolioProject(&pf.Projects[i])
	}
	return respond(c, http.StatusOK, out)
}

func (ctrl *controller) portfolioSettingsGet(c echo.Context) error {
	settings, err := ctrl.model.LoadPortfolioSettings(currentUserID(c))
	if err != nil {
		return err
	}
	projects := make([]APIPortfolioProject, len(settings.Projects))
	for i := range settings.Projects {
		projects[i] = toAPIPortfolioProject(&settings.Projects[i])
	}
	return respond(c, http.StatusOK, map[string]any{
		"username":       settings.Username,
		"name":           settings.Name,
		"bio":            settings.Bio,
		"profile_image":  settings.ProfileImage,
		"specialization": settings.Specialization,
		"is_public":      settings.IsPublic,
		"projects":       projects,
	})
}

type portfolioSettingsRequest struct {
	Bio            *string `json:"bio"`
	Specialization *string `json:"specialization"`
	IsPublic       *bool   `json:"is_public"`
	Projects       []struct {
		ID       uint `json:"id"`
		IsPublic bool `json:"is_public"`
	} `json:"projects"`
}

func (ctrl *controller) portfolioSettingsUpdate(c echo.Context) error {
	var req portfolioSettingsRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}
	upd := model.PortfolioSettingsUpdate{
		Bio:            req.Bio,
		Specialization: req.Specialization,
		IsPublic:       req.IsPublic,
	}
	for _, p := range req.Projects {
		upd.Projects = append(upd.Projects, model.ProjectVisibility{ID: p.ID, IsPublic: p.IsPublic})
	}
	if err := ctrl.model.UpdatePortfolioSettings(currentUserID(c), upd); err != nil {
		return err
	}
	return ctrl.portfolioSettingsGet(c)
}
