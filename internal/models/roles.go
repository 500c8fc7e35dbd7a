package models

type Role string

const (
	RoleStudent   Role = "student"
	RoleLibrarian Role = "librarian"
	RoleTeacher   Role = "teacher"
	RoleWarden    Role = "warden"
)

type Department string

const (
	DepartmentLibrary   Department = "library"
	DepartmentAcademics Department = "academics"
	DepartmentHostel    Department = "hostel"
)

var validRoles = map[Role]struct{}{
	RoleStudent:   {},
	RoleLibrarian: {},
	RoleTeacher:   {},
	RoleWarden:    {},
}

var staffDepartments = map[Role]Department{
	RoleLibrarian: DepartmentLibrary,
	RoleTeacher:   DepartmentAcademics,
	RoleWarden:    DepartmentHostel,
}

func IsValidRole(role string) bool {
	_, ok := validRoles[Role(role)]
	return ok
}

func IsValidDepartment(dept string) bool {
	switch Department(dept) {
	case DepartmentLibrary, DepartmentAcademics, DepartmentHostel:
		return true
	}
	return false
}

// DepartmentFor returns the department a staff role manages.
func DepartmentFor(role Role) (Department, bool) {
	d, ok := staffDepartments[role]
	return d, ok
}
