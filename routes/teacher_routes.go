package routes

import "github.com/gofiber/fiber/v2"

func TeacherRoutes(api fiber.Router, d Deps) {
	teacher := api.Group("/teacher")
	teacher.Get("/bookings", d.teacherOnly(d.Bookings.GetTeacherBookings)...)

	teacher.Get("/profile", d.teacherOnly(d.Teachers.GetMyProfile)...)
	teacher.Put("/profile", d.teacherOnly(d.Teachers.UpsertProfile)...)
	teacher.Post("/profile/toggle-accepting", d.teacherOnly(d.Teachers.ToggleAccepting)...)

	teacher.Post("/subjects/:subjectId", d.teacherOnly(d.Teachers.AddSubject)...)
	teacher.Delete("/subjects/:subjectId", d.teacherOnly(d.Teachers.RemoveSubject)...)

	teacher.Post("/availability", d.teacherOnly(d.Teachers.AddAvailability)...)
	teacher.Put("/availability/:slotId", d.teacherOnly(d.Teachers.UpdateAvailability)...)
	teacher.Delete("/availability/:slotId", d.teacherOnly(d.Teachers.DeleteAvailability)...)

	UploadRoutes(teacher, d)
}
