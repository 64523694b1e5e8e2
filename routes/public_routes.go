package routes

import "github.com/gofiber/fiber/v2"

func PublicRoutes(api fiber.Router, d Deps) {
	api.Get("/teachers", d.Teachers.SearchTeachers)
	api.Get("/teachers/:id", d.Teachers.GetTeacher)
	api.Get("/teachers/:id/availability", d.Teachers.GetTeacherAvailability)
	api.Get("/teachers/:id/reviews", d.Teachers.GetTeacherReviews)
	api.Get("/subjects", d.Teachers.ListSubjects)
}
