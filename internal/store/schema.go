package store

// SchemaSQL contains the report table schema. Sections and their history
// entries are nested documents, so the field stays FLEXIBLE.
const SchemaSQL = `
    DEFINE TABLE IF NOT EXISTS report SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS session_id ON report TYPE string;
    DEFINE FIELD IF NOT EXISTS user_confirmed_start ON report TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS plan ON report TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON report TYPE string;
    DEFINE FIELD IF NOT EXISTS sections ON report TYPE array<object> FLEXIBLE;
    -- Note: Must REMOVE then DEFINE to ensure FLEXIBLE is set (IF NOT EXISTS won't update existing field)
    REMOVE FIELD IF EXISTS sections.* ON report;
    DEFINE FIELD sections.* ON report TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS phase ON report TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS finalize_error ON report TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS document_ref ON report TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS exports ON report TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS version ON report TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS created_at ON report TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON report TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS report_session ON report FIELDS session_id UNIQUE;
`
