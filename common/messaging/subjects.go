package messaging

// Subjects follow {service}.{resource}.{action}.
const (
	SubjectSchoolsCreated = "schoolhub.schools.created"
	SubjectSchoolsUpdated = "schoolhub.schools.updated"
	SubjectSchoolsDeleted = "schoolhub.schools.deleted"

	SubjectClassroomsCreated = "schoolhub.classrooms.created"
	SubjectClassroomsUpdated = "schoolhub.classrooms.updated"
	SubjectClassroomsDeleted = "schoolhub.classrooms.deleted"

	SubjectStudentsCreated     = "schoolhub.students.created"
	SubjectStudentsUpdated     = "schoolhub.students.updated"
	SubjectStudentsDeleted     = "schoolhub.students.deleted"
	SubjectStudentsTransferred = "schoolhub.students.transferred"
	SubjectStudentsEnrolled    = "schoolhub.students.enrolled"

	SubjectUsersCreated = "schoolhub.users.created"

	// SubjectAudit carries signed audit entries.
	SubjectAudit = "schoolhub.audit"
)
