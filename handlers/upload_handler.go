package handlers

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const profilePictureFolder = "tutor_marketplace_profiles"

// UploadHandler lets teachers upload their profile picture straight to Cloudinary.
// Each teacher may only write to their own public id inside the profiles folder.
type UploadHandler struct {
	cld      *cloudinary.Cloudinary
	teachers *services.TeacherService
	now      func() time.Time
}

// NewUploadHandler disables uploads when cloudinaryURL is empty or invalid.
func NewUploadHandler(cloudinaryURL string, teachers *services.TeacherService) *UploadHandler {
	h := &UploadHandler{teachers: teachers, now: time.Now}
	if cloudinaryURL == "" {
		return h
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		log.Printf("⚠️ Cloudinary disabled: %v", err)
		return h
	}
	h.cld = cld
	return h
}

func profilePicturePublicID(teacherProfileID uuid.UUID) string {
	return "teacher_" + teacherProfileID.String()
}

// GenerateUploadSignature signs a direct browser upload of the teacher's picture.
// The signed public id ties the upload to the caller's profile.
func (h *UploadHandler) GenerateUploadSignature(c *fiber.Ctx) error {
	if h.cld == nil {
		return fail(c, fiber.StatusServiceUnavailable, "EXTERNAL_SERVICE", "Uploads are not configured")
	}
	profile, err := h.teachers.GetMyProfile(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return respondError(c, err)
	}

	publicID := profilePicturePublicID(profile.ID)
	params, err := api.StructToParams(uploader.UploadParams{
		Folder:   profilePictureFolder,
		PublicID: publicID,
	})
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "INTERNAL", "Failed to prepare signature params")
	}
	timestamp := h.now().Unix()
	params.Set("timestamp", strconv.FormatInt(timestamp, 10))

	cloud := h.cld.Config.Cloud
	signature, err := api.SignParameters(params, cloud.APISecret)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "INTERNAL", "Failed to sign upload params")
	}

	return c.JSON(fiber.Map{
		"signature":  signature,
		"timestamp":  timestamp,
		"api_key":    cloud.APIKey,
		"cloud_name": cloud.CloudName,
		"folder":     profilePictureFolder,
		"public_id":  publicID,
	})
}

// isProfilePictureURL accepts only delivery URLs of this cloud that point at the
// teacher's own public id in the profiles folder, e.g.
// https://res.cloudinary.com/<cloud>/image/upload/v17/<folder>/teacher_<id>.jpg
func (h *UploadHandler) isProfilePictureURL(raw string, teacherProfileID uuid.UUID) bool {
	prefix := "https://res.cloudinary.com/" + h.cld.Config.Cloud.CloudName + "/image/upload/"
	if !strings.HasPrefix(raw, prefix) {
		return false
	}
	rest := strings.TrimPrefix(raw, prefix)

	target := profilePictureFolder + "/" + profilePicturePublicID(teacherProfileID) + "."
	i := strings.Index(rest, target)
	if i < 0 || (i > 0 && rest[i-1] != '/') {
		return false
	}
	ext := rest[i+len(target):]
	return ext != "" && !strings.ContainsAny(ext, "/?#")
}

type ProfilePictureRequest struct {
	URL string `json:"url" validate:"required,url,max=512"`
}

func (h *UploadHandler) SetProfilePicture(c *fiber.Ctx) error {
	if h.cld == nil {
		return fail(c, fiber.StatusServiceUnavailable, "EXTERNAL_SERVICE", "Uploads are not configured")
	}
	var req ProfilePictureRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	actor := middleware.CurrentActor(c)
	profile, err := h.teachers.GetMyProfile(c.UserContext(), actor)
	if err != nil {
		return respondError(c, err)
	}
	if !h.isProfilePictureURL(req.URL, profile.ID) {
		return respondError(c, &services.ValidationError{Message: "url must be your uploaded profile picture"})
	}

	profile, err = h.teachers.SetProfilePicture(c.UserContext(), actor, req.URL)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": "Profile picture updated", "profile_picture_url": profile.ProfilePictureURL})
}
