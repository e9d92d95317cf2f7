package postgres

const insertEventSQL = `
INSERT INTO deed_events (id, user_id, deed_id, point_value, occurred_at, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`

const scanRangeSQL = `
SELECT id, user_id, deed_id, point_value, occurred_at, recorded_at
FROM deed_events
WHERE occurred_at >= $1 AND occurred_at < $2 AND (occurred_at, id) > ($3, $4)
ORDER BY occurred_at, id
LIMIT $5`

const scanAllSQL = `
SELECT id, user_id, deed_id, point_value, occurred_at, recorded_at
FROM deed_events
WHERE (occurred_at, id) > ($1, $2)
ORDER BY occurred_at, id
LIMIT $3`

const userCohortsSQL = `
SELECT cohort_id
FROM user_cohorts
WHERE user_id = $1
ORDER BY cohort_id`
