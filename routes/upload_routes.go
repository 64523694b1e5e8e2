package routes

import "github.com/gofiber/fiber/v2"

// UploadRoutes mounts profile picture uploads under the teacher router.
func UploadRoutes(teacher fiber.Router, d Deps) {
	teacher.Get("/upload-signature", d.teacherOnly(d.Uploads.GenerateUploadSignature)...)
	teacher.Put("/profile/picture", d.teacherOnly(d.Uploads.SetProfilePicture)...)
}
