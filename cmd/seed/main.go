// Command seed resets the database and loads the demo roster: students with
// enrolled cards, lecturers, modules, teaching assignments, enrollments, a
// timetable and one open session.
package main

import (
	"context"
	"log"

	"golang.org/x/crypto/bcrypt"

	"campustap/internal/config"
	"campustap/internal/store"
)

const demoPassword = "password123"

type studentSeed struct{ name, number, cardUID string }

type lecturerSeed struct{ name, email, role string }

var students = []studentSeed{
	{"Kelvin O'Brien", "MTU001", "04A1B2C3"},
	{"Aoife Murphy", "MTU002", "04A1B2C4"},
	{"Liam Walsh", "MTU003", "04A1B2C5"},
	{"Sarah Nolan", "MTU004", "04A1B2C6"},
	{"Daniel O'Shea", "MTU005", "04A1B2C7"},
	{"Emily Byrne", "MTU006", "04A1B2C8"},
	{"Jack Fitzgerald", "MTU007", "04A1B2C9"},
	{"Niamh O'Connor", "MTU008", "04A1B2D0"},
	{"Conor Ryan", "MTU009", "04A1B2D1"},
	{"Aisling Keane", "MTU010", "04A1B2D2"},
	{"Ethan Kelly", "MTU011", "04A1B2D3"},
	{"Chloe Burke", "MTU012", "04A1B2D4"},
	{"Sean Daly", "MTU013", "04A1B2D5"},
	{"Grace O'Riley", "MTU014", "04A1B2D6"},
	{"Fionn Moran", "MTU015", "04A1B2D7"},
	{"Holly Byrne", "MTU016", "04A1B2D8"},
	{"Noah Gallagher", "MTU017", "04A1B2D9"},
	{"Saoirse Quinn", "MTU018", "04A1B2E0"},
	{"Cian McCarthy", "MTU019", "04A1B2E1"},
	{"Maeve Doyle", "MTU020", "04A1B2E2"},
	{"Ronan O'Brien", "MTU021", "04A1B2E3"},
	{"Ciara Hayes", "MTU022", "04A1B2E4"},
	{"Dara Flynn", "MTU023", "04A1B2E5"},
	{"Orla Brady", "MTU024", "04A1B2E6"},
	{"Paddy Brennan", "MTU025", "04A1B2E7"},
	{"Zoe Kavanagh", "MTU026", "04A1B2E8"},
}

var lecturers = []lecturerSeed{
	{"Brian O'Conner", "brian@mtu.ie", "admin"},
	{"Mia Toretto", "mia@mtu.ie", "lecturer"},
	{"George D O Mahony", "george@mtu.ie", "lecturer"},
	{"Angela Wright", "angela@mtu.ie", "lecturer"},
	{"Aine Ni She", "aine@mtu.ie", "lecturer"},
	{"Katie Power", "katie@mtu.ie", "lecturer"},
	{"Donagh O Mahony", "donagh@mtu.ie", "lecturer"},
}

var modules = [][2]string{
	{"CS401", "Computer Networks"},
	{"CS402", "Software Engineering"},
	{"CS403", "Cyber Security"},
	{"CS404", "Web Development"},
	{"CS405", "Mobile App Development"},
	{"COMH6002", "Computer Architecture"},
	{"COMP6035", "Computer Security Principles"},
	{"CMOD6001", "Creativity Innovation & Teamwork"},
	{"MATH6055", "Maths for Computer Science"},
	{"SOFT6018", "Programming Fundamentals"},
	{"SOFT6007", "Web Development Fundamentals"},
	{"LEGS8001", "Ethical and Legal Issues in IT"},
	{"COMP8056", "IT Solutions Architecture"},
	{"INTR8015", "Project - Implementation Phase"},
	{"COMP8028", "Security Penetration Testing"},
	{"COMH8001", "Enterprise Storage Systems"},
	{"COMP8019", "IT Service Management"},
	{"COMP8031", "IT Transformation"},
	{"INTR8016", "Project - Research Phase"},
	{"COMP8027", "Security Monitoring"},
	{"COMP8050", "Security for Software Systems"},
	{"COMP8052", "Software-Defined Networking"},
	{"COMP7040", "Technical Writing using XML"},
}

var lecturerModules = [][2]int64{
	{1, 1}, {1, 3}, {1, 4}, {2, 2}, {2, 5}, {3, 7}, {3, 10}, {4, 8}, {5, 9},
	{6, 12}, {7, 14}, {3, 6}, {6, 11}, {4, 13}, {5, 15}, {7, 16}, {3, 17},
	{4, 18}, {5, 19}, {6, 20}, {7, 21}, {3, 22}, {4, 23},
}

var timetable = []struct {
	moduleID              int64
	day, start, end, room string
}{
	{1, "Monday", "09:00", "11:00", "B201"},
	{2, "Monday", "11:00", "12:00", "C105"},
	{3, "Monday", "12:00", "14:00", "B301"},
	{4, "Tuesday", "09:00", "11:00", "Lab A"},
	{5, "Tuesday", "11:00", "12:00", "C210"},
	{6, "Wednesday", "09:00", "11:00", "B110"},
	{7, "Wednesday", "11:00", "12:00", "C215"},
	{8, "Wednesday", "12:00", "13:00", "B205"},
	{9, "Thursday", "09:00", "10:00", "B101"},
	{10, "Thursday", "10:00", "12:00", "Lab B"},
	{11, "Thursday", "13:00", "14:00", "C110"},
	{12, "Friday", "09:00", "10:00", "B202"},
	{13, "Friday", "10:00", "11:00", "C115"},
	{14, "Friday", "11:00", "13:00", "Lab C"},
	{15, "Monday", "14:00", "15:00", "B305"},
	{16, "Tuesday", "14:00", "15:00", "C120"},
	{17, "Wednesday", "14:00", "15:00", "B210"},
	{18, "Thursday", "14:00", "15:00", "C130"},
	{19, "Friday", "14:00", "15:00", "B220"},
	{20, "Monday", "15:00", "16:00", "C140"},
	{21, "Tuesday", "15:00", "16:00", "B230"},
	{22, "Wednesday", "15:00", "16:00", "C150"},
	{23, "Thursday", "15:00", "16:00", "B240"},
}

var moduleStudents = [][2]int64{
	{1, 1}, {1, 2}, {1, 3},
	{2, 1}, {2, 4}, {2, 5},
	{3, 2}, {3, 6},
	{4, 3}, {4, 7},
	{5, 4}, {5, 8},
	{6, 1}, {6, 9},
	{7, 2}, {7, 10},
	{8, 3}, {8, 11},
	{9, 4}, {9, 12},
	{10, 5}, {10, 13},
	{11, 6}, {11, 14},
	{12, 7}, {12, 15},
	{13, 8}, {13, 16},
	{14, 9}, {14, 17},
	{15, 10}, {15, 18},
	{16, 11}, {16, 19},
	{17, 12}, {17, 20},
	{18, 13}, {18, 21},
	{19, 14}, {19, 22},
	{20, 15}, {20, 23},
	{21, 16}, {21, 24},
	{22, 17}, {22, 25},
	{23, 18}, {23, 26},
}

func main() {
	cfg := config.Load()
	ctx := context.Background()

	log.Println("Seeding database...")

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema failed: %v", err)
	}

	// Wipe everything; cascades cover the join and child tables.
	_, err = db.Client.ExecContext(ctx, `
		TRUNCATE attendance, sessions, timetable, module_students,
		         lecturer_modules, lecturers, students, modules,
		         readers, refresh_tokens
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		log.Fatalf("truncate failed: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hash failed: %v", err)
	}

	for _, s := range students {
		if _, err := db.Client.ExecContext(ctx, `
			INSERT INTO students (name, student_number, nfc_uid, password_hash)
			VALUES ($1, $2, $3, $4)
		`, s.name, s.number, s.cardUID, string(hash)); err != nil {
			log.Fatalf("insert student %s: %v", s.number, err)
		}
	}

	for _, l := range lecturers {
		if _, err := db.Client.ExecContext(ctx, `
			INSERT INTO lecturers (name, email, password_hash, role)
			VALUES ($1, $2, $3, $4)
		`, l.name, l.email, string(hash), l.role); err != nil {
			log.Fatalf("insert lecturer %s: %v", l.email, err)
		}
	}

	for _, m := range modules {
		if _, err := db.Client.ExecContext(ctx, `
			INSERT INTO modules (code, name) VALUES ($1, $2)
		`, m[0], m[1]); err != nil {
			log.Fatalf("insert module %s: %v", m[0], err)
		}
	}

	for _, lm := range lecturerModules {
		if _, err := db.Client.ExecContext(ctx, `
			INSERT INTO lecturer_modules (lecturer_id, module_id) VALUES ($1, $2)
		`, lm[0], lm[1]); err != nil {
			log.Fatalf("assign lecturer %d to module %d: %v", lm[0], lm[1], err)
		}
	}

	for _, t := range timetable {
		if _, err := db.Client.ExecContext(ctx, `
			INSERT INTO timetable (module_id, day, start_time, end_time, room)
			VALUES ($1, $2, $3, $4, $5)
		`, t.moduleID, t.day, t.start, t.end, t.room); err != nil {
			log.Fatalf("insert timetable for module %d: %v", t.moduleID, err)
		}
	}

	for _, ms := range moduleStudents {
		if _, err := db.Client.ExecContext(ctx, `
			INSERT INTO module_students (module_id, student_id) VALUES ($1, $2)
		`, ms[0], ms[1]); err != nil {
			log.Fatalf("enroll student %d in module %d: %v", ms[1], ms[0], err)
		}
	}

	// One open session for CS401 with Brian, so a tap works out of the box.
	if _, err := db.Client.ExecContext(ctx, `
		INSERT INTO sessions (module_id, lecturer_id) VALUES (1, 1)
	`); err != nil {
		log.Fatalf("insert session: %v", err)
	}

	log.Println("Seeding complete.")
}
