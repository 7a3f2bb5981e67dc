package model

// All returns every model in migration order
func All() []any {
	return []any{
		&User{},
		&Role{},
		&UserRole{},
		&Curriculum{},
		&Faculty{},
		&Course{},
		&CourseRequirement{},
		&CourseRegistration{},
		&UserCourse{},
		&Applicant{},
		&CronJobLog{},
	}
}
