package source

// Query text for both acquisition strategies. The mirror → region CASE
// and the partner exclusion list are part of the product's reporting
// contract and must stay in sync between the two variants.

// Completed payments over the trailing year (warehouse dialect).
// Status 4 is "completed"; the excluded partners are internal and test
// accounts.
const warehousePaymentsQuery = `
SELECT DISTINCT
  u.id AS id_user,
  toDate(po.date_created) AS po_date,
  CASE
    WHEN u.id_mirror IN (1, 11, 14, 17, 20, 29, 30, 31, 32, 35, 37, 38, 40, 42, 43, 45) THEN 'cis'
    WHEN u.id_mirror IN (23, 26, 39, 44, 46, 47, 48, 49) THEN 'asia'
    WHEN u.id_mirror = 41 THEN 'latam'
  END AS region
FROM payments.transactions t
JOIN payments.orders po ON po.id = t.id_order
JOIN product.db_users u ON u.id = po.id_user
WHERE po.date_created >= ?
  AND t.id_status IN (4)
  AND u.id_partner NOT IN ('-1', '1', '2', '3', '4', '5', 'mikula', 'tech_vb_test')
`

// Login days over the trailing month joined to the user directory
// (warehouse dialect).
const warehouseLoginsQuery = `
WITH users AS (
  SELECT
    id,
    date_created,
    id_mirror
  FROM product.db_users
  WHERE id_partner NOT IN ('-1', '1', '2', '3', '4', '5', 'mikula', 'tech_vb_test', 'test')
    AND gender = 'male'
),

logins AS (
  SELECT
    id_user,
    date_created
  FROM product.users_logins
  WHERE date_created >= ?
)

SELECT DISTINCT
  u.id AS id_user,
  toDate(u.date_created) AS u_date_created,
  toDate(e.date_created) AS date,
  CASE
    WHEN u.id_mirror IN (1, 11, 14, 17, 20, 29, 30, 31, 32, 35, 37, 38, 40, 42, 43, 45) THEN 'cis'
    WHEN u.id_mirror IN (23, 26, 39, 44, 46, 47, 48, 49) THEN 'asia'
    WHEN u.id_mirror = 41 THEN 'latam'
  END AS region
FROM logins e
INNER JOIN users u ON u.id = e.id_user
`

// Operational-store variants of the same two queries. Same semantics,
// Postgres dialect, read from the monolith's tables when the warehouse
// is unavailable or lagging.
const operationalPaymentsQuery = `
SELECT DISTINCT
  u.id AS id_user,
  po.date_created::date AS po_date,
  CASE
    WHEN u.id_mirror IN (1, 11, 14, 17, 20, 29, 30, 31, 32, 35, 37, 38, 40, 42, 43, 45) THEN 'cis'
    WHEN u.id_mirror IN (23, 26, 39, 44, 46, 47, 48, 49) THEN 'asia'
    WHEN u.id_mirror = 41 THEN 'latam'
  END AS region
FROM transactions t
JOIN orders po ON po.id = t.id_order
JOIN db_users u ON u.id = po.id_user
WHERE po.date_created >= $1
  AND t.id_status IN (4)
  AND u.id_partner NOT IN ('-1', '1', '2', '3', '4', '5', 'mikula', 'tech_vb_test')
`

const operationalLoginsQuery = `
WITH users AS (
  SELECT
    id,
    date_created,
    id_mirror
  FROM db_users
  WHERE id_partner NOT IN ('-1', '1', '2', '3', '4', '5', 'mikula', 'tech_vb_test', 'test')
    AND gender = 'male'
),

logins AS (
  SELECT
    id_user,
    date_created
  FROM users_logins
  WHERE date_created >= $1
)

SELECT DISTINCT
  u.id AS id_user,
  u.date_created::date AS u_date_created,
  e.date_created::date AS date,
  CASE
    WHEN u.id_mirror IN (1, 11, 14, 17, 20, 29, 30, 31, 32, 35, 37, 38, 40, 42, 43, 45) THEN 'cis'
    WHEN u.id_mirror IN (23, 26, 39, 44, 46, 47, 48, 49) THEN 'asia'
    WHEN u.id_mirror = 41 THEN 'latam'
  END AS region
FROM logins e
INNER JOIN users u ON u.id = e.id_user
`
